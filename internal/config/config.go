package config

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/viper"

	"github.com/manifest-network/stxgen/internal/generator"
)

// Supported batch outputs.
const (
	OutputTSV      = "tsv"
	OutputPostgres = "postgres"
)

// GenerateConfig configures a batch replay log run.
type GenerateConfig struct {
	BlockCount   uint64
	Output       string
	Path         string
	UseTmp       bool
	TmpBase      string
	ShowProgress bool
}

// MineConfig configures a live simulation against a mock node.
type MineConfig struct {
	Host        string
	StacksPort  uint16
	BitcoinPort uint16
	StartHeight uint64
	BlockCount  uint64
	BurnOffset  uint64
	BlockTime   time.Duration
	MaxRetries  uint
	MetricsAddr string
}

// PostgresConfig configures the Postgres replay output.
type PostgresConfig struct {
	ConnString string
}

// Validate checks that the run names a destination and that every burn height
// in 1..BlockCount fits in a uint64.
func (c GenerateConfig) Validate() error {
	if c.BlockCount == 0 {
		return fmt.Errorf("block count must be greater than 0")
	}
	if c.BlockCount > math.MaxUint64-generator.DefaultBurnHeightOffset {
		return fmt.Errorf("block count %d overflows burn heights", c.BlockCount)
	}
	switch c.Output {
	case OutputTSV:
		if c.Path == "" && !c.UseTmp {
			return fmt.Errorf("either an output path or a temporary working directory is required")
		}
		if c.UseTmp && c.TmpBase == "" {
			return fmt.Errorf("temporary working directory base must not be empty")
		}
	case OutputPostgres:
		if c.BlockCount > math.MaxInt64 {
			return fmt.Errorf("block count %d exceeds the largest postgres record id", c.BlockCount)
		}
	default:
		return fmt.Errorf("unsupported output %q, expected %q or %q", c.Output, OutputTSV, OutputPostgres)
	}
	return nil
}

// Validate checks the mock node address and that the mined height range and
// its burn heights fit in a uint64.
func (c MineConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("mock node host must not be empty")
	}
	if c.StacksPort == 0 {
		return fmt.Errorf("stacks ingestion port must be set")
	}
	if c.BitcoinPort == 0 {
		return fmt.Errorf("bitcoin rpc port must be set")
	}
	if c.StacksPort == c.BitcoinPort {
		return fmt.Errorf("stacks and bitcoin ports must differ, both are %d", c.StacksPort)
	}
	if c.StartHeight == 0 {
		return fmt.Errorf("start height must be greater than 0")
	}
	if c.BlockCount == 0 {
		return fmt.Errorf("block count must be greater than 0")
	}
	if c.BlockCount-1 > math.MaxUint64-c.StartHeight {
		return fmt.Errorf("height range starting at %d with %d blocks overflows", c.StartHeight, c.BlockCount)
	}
	if last := c.LastHeight(); c.BurnOffset > math.MaxUint64-last {
		return fmt.Errorf("burn offset %d overflows the burn height of block %d", c.BurnOffset, last)
	}
	if c.BlockTime < 0 {
		return fmt.Errorf("block time must not be negative")
	}
	return nil
}

// LastHeight returns the last height of the mined range. Only meaningful on a
// validated config.
func (c MineConfig) LastHeight() uint64 {
	return c.StartHeight + c.BlockCount - 1
}

// Validate checks that a connection string is set.
func (c PostgresConfig) Validate() error {
	if c.ConnString == "" {
		return fmt.Errorf("postgres connection string is required")
	}
	return nil
}

// LoadGenerateConfigFromCLI reads the generate command settings bound in viper.
func LoadGenerateConfigFromCLI() GenerateConfig {
	return GenerateConfig{
		BlockCount:   viper.GetUint64("block-count"),
		Output:       viper.GetString("output"),
		Path:         viper.GetString("path"),
		UseTmp:       viper.GetBool("tmp"),
		TmpBase:      viper.GetString("tmp-base"),
		ShowProgress: viper.GetBool("progress"),
	}
}

// LoadMineConfigFromCLI reads the mine command settings bound in viper.
func LoadMineConfigFromCLI() MineConfig {
	return MineConfig{
		Host:        viper.GetString("host"),
		StacksPort:  viper.GetUint16("stacks-port"),
		BitcoinPort: viper.GetUint16("bitcoin-port"),
		StartHeight: viper.GetUint64("start-height"),
		BlockCount:  viper.GetUint64("block-count"),
		BurnOffset:  viper.GetUint64("burn-offset"),
		BlockTime:   viper.GetDuration("block-time"),
		MaxRetries:  viper.GetUint("max-retries"),
		MetricsAddr: viper.GetString("metrics-addr"),
	}
}

// LoadPostgresConfigFromCLI reads the Postgres settings bound in viper.
func LoadPostgresConfigFromCLI() PostgresConfig {
	return PostgresConfig{
		ConnString: viper.GetString("postgres-conn"),
	}
}
