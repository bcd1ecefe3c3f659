package stxgen

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/manifest-network/stxgen/internal/config"
	"github.com/manifest-network/stxgen/internal/miner"
	"github.com/manifest-network/stxgen/internal/output/postgresql"
	"github.com/manifest-network/stxgen/internal/utils"
)

// newRandomSource names scratch directories; tests replace it.
var newRandomSource = utils.NewRandomSource

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write stacks_block_received records for heights 1..N to a replay output",
		Example: `  stxgen generate --block-count 100 --path data/stacks_blocks.tsv
  stxgen generate --block-count 100 --tmp
  stxgen generate --block-count 100 --output postgres --postgres-conn postgres://localhost/stxgen`,
		Args:    cobra.NoArgs,
		PreRunE: bindFlags,
		RunE:    runGenerate,
	}

	cmd.Flags().Uint64P("block-count", "n", 100, "Number of blocks to write, starting at height 1")
	cmd.Flags().StringP("output", "o", config.OutputTSV, "Output type (tsv, postgres)")
	cmd.Flags().StringP("path", "p", "", "Path of the TSV replay log")
	cmd.Flags().Bool("tmp", false, "Write the TSV log into a new scratch directory")
	cmd.Flags().String("tmp-base", utils.DefaultWorkingDirBase, "Base directory of scratch directories")
	cmd.Flags().Bool("progress", false, "Display a progress bar")
	cmd.Flags().String("postgres-conn", "", "Postgres connection string")

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg := config.LoadGenerateConfigFromCLI()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid generate configuration: %w", err)
	}

	ctx := commandContext(cmd)
	opts := miner.BatchOptions{ShowProgress: cfg.ShowProgress, OutputLabel: cfg.Output}

	switch cfg.Output {
	case config.OutputPostgres:
		pgCfg := config.LoadPostgresConfigFromCLI()
		if err := pgCfg.Validate(); err != nil {
			return fmt.Errorf("invalid postgres configuration: %w", err)
		}

		handler, err := postgresql.NewPostgresOutputHandler(ctx, pgCfg.ConnString)
		if err != nil {
			return fmt.Errorf("failed to create postgres output: %w", err)
		}
		defer func() {
			if err := handler.Close(); err != nil {
				slog.Warn("Failed to close postgres output", "error", err)
			}
		}()

		written, err := miner.WriteStacksBlocks(ctx, cfg.BlockCount, handler, opts)
		if err != nil {
			return fmt.Errorf("failed to write records: %w", err)
		}
		slog.Info("Wrote records to postgres", "records", written, "requested", cfg.BlockCount)

	default:
		path := cfg.Path
		if cfg.UseTmp {
			workingDir, tsvPath, err := utils.CreateTmpWorkingDir(cfg.TmpBase, newRandomSource())
			if err != nil {
				return err
			}
			path = tsvPath
			fmt.Fprintln(cmd.OutOrStdout(), workingDir)
		}

		if err := miner.WriteStacksBlocksToTSV(ctx, cfg.BlockCount, path, opts); err != nil {
			return fmt.Errorf("failed to write replay log: %w", err)
		}
		slog.Info("Wrote replay log", "path", path, "records", cfg.BlockCount)
	}

	return nil
}
