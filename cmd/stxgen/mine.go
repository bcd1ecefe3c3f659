package stxgen

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/manifest-network/stxgen/internal/client"
	"github.com/manifest-network/stxgen/internal/config"
	"github.com/manifest-network/stxgen/internal/generator"
	"github.com/manifest-network/stxgen/internal/metrics"
	"github.com/manifest-network/stxgen/internal/miner"
)

func newMineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Announce burn and stacks blocks to a mock node, one height per block time",
		Example: `  stxgen mine --stacks-port 20445 --bitcoin-port 18444 --start-height 1 --block-count 10
  stxgen mine --block-time 0 --metrics-addr :9090`,
		Args:    cobra.NoArgs,
		PreRunE: bindFlags,
		RunE:    runMine,
	}

	cmd.Flags().String("host", client.DefaultHost, "Host of the mock node")
	cmd.Flags().Uint16("stacks-port", 20445, "Port of the mock stacks node ingestion endpoint")
	cmd.Flags().Uint16("bitcoin-port", 18444, "Port of the mock bitcoin rpc endpoint")
	cmd.Flags().Uint64("start-height", 1, "First stacks height to mine")
	cmd.Flags().Uint64P("block-count", "n", 10, "Number of blocks to mine")
	cmd.Flags().Uint64("burn-offset", generator.DefaultBurnHeightOffset, "Distance between burn heights and stacks heights")
	cmd.Flags().Duration("block-time", time.Second, "Delay between two mined heights")
	cmd.Flags().Uint("max-retries", 3, "Retries of a failed stacks block announcement")
	cmd.Flags().String("metrics-addr", "", "Address to serve Prometheus metrics on, disabled when empty")

	return cmd
}

func runMine(cmd *cobra.Command, _ []string) error {
	cfg := config.LoadMineConfigFromCLI()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid mine configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nodeClient := client.NewMockNodeClient(client.WithHost(cfg.Host))

	eg, egCtx := errgroup.WithContext(ctx)
	metricsCtx, stopMetrics := context.WithCancel(egCtx)
	defer stopMetrics()

	if cfg.MetricsAddr != "" {
		eg.Go(func() error {
			return metrics.Serve(metricsCtx, cfg.MetricsAddr)
		})
	}

	eg.Go(func() error {
		defer stopMetrics()
		return miner.MineBlocks(egCtx, nodeClient, cfg)
	})

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("mining failed: %w", err)
	}
	return nil
}
