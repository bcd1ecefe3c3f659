package miner

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/schollz/progressbar/v3"

	"github.com/manifest-network/stxgen/internal/generator"
	"github.com/manifest-network/stxgen/internal/metrics"
	"github.com/manifest-network/stxgen/internal/output"
	"github.com/manifest-network/stxgen/internal/output/tsv"
)

// BatchOptions tunes a batch replay log run.
type BatchOptions struct {
	// ShowProgress renders a progress bar on stderr.
	ShowProgress bool
	// OutputLabel names the output in metrics.
	OutputLabel string
}

// WriteStacksBlocksToTSV writes stacks_block_received records for heights
// 1..=blockCount to a tab-delimited log at path, creating its directory tree.
func WriteStacksBlocksToTSV(ctx context.Context, blockCount uint64, path string, opts BatchOptions) (err error) {
	writer, err := tsv.NewWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if opts.OutputLabel == "" {
		opts.OutputLabel = "tsv"
	}
	_, err = WriteStacksBlocks(ctx, blockCount, writer, opts)
	return err
}

// WriteStacksBlocks writes stacks_block_received records for heights
// 1..=blockCount, each anchored generator.DefaultBurnHeightOffset burn blocks
// ahead. The first failing record aborts the run. Outputs that can report
// their content are back-filled first and resumed after their latest record.
// It returns the number of records written by this call.
func WriteStacksBlocks(ctx context.Context, blockCount uint64, outputHandler output.OutputHandler, opts BatchOptions) (uint64, error) {
	if blockCount > math.MaxUint64-generator.DefaultBurnHeightOffset {
		return 0, fmt.Errorf("block count %d overflows burn heights", blockCount)
	}

	start := uint64(1)
	var written uint64

	if resumable, ok := outputHandler.(output.ResumableOutputHandler); ok {
		backfilled, err := processMissingRecords(ctx, resumable, blockCount, opts)
		written += backfilled
		if err != nil {
			return written, err
		}

		latest, err := resumable.GetLatestRecord(ctx)
		if err != nil {
			return written, fmt.Errorf("failed to get latest record: %w", err)
		}
		if latest != nil {
			start = latest.ID + 1
		}
	}

	if start > blockCount {
		slog.Info("Output already holds the requested records", "latest", start-1, "requested", blockCount)
		return written, nil
	}

	appended, err := writeRecords(ctx, start, blockCount, outputHandler, opts)
	return written + appended, err
}

// writeRecords writes the records of [start, stop] in order and returns how
// many it wrote.
func writeRecords(ctx context.Context, start, stop uint64, outputHandler output.OutputHandler, opts BatchOptions) (uint64, error) {
	displayProgress := opts.ShowProgress && start != stop
	if start != stop {
		slog.Info("Writing stacks block records", "range", fmt.Sprintf("[%d, %d]", start, stop))
	} else {
		slog.Info("Writing stacks block record", "height", start)
	}

	var bar *progressbar.ProgressBar
	if displayProgress {
		bar = progressbar.NewOptions64(
			int64(stop-start+1),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetDescription("Writing records..."),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		if err := bar.RenderBlank(); err != nil {
			return 0, fmt.Errorf("failed to render progress bar: %w", err)
		}
	}

	var written uint64
	for height := start; height <= stop; height++ {
		if ctx.Err() != nil {
			slog.Info("Writing cancelled by user")
			return written, ctx.Err()
		}

		if err := writeRecord(ctx, height, outputHandler, opts); err != nil {
			return written, err
		}
		written++

		if bar != nil {
			if err := bar.Add(1); err != nil {
				slog.Warn("Failed to update progress bar", "error", err)
			}
		}
	}

	if bar != nil {
		if err := bar.Finish(); err != nil {
			return written, fmt.Errorf("failed to finish progress bar: %w", err)
		}
	}
	return written, nil
}

// processMissingRecords back-fills ids the output skipped, up to blockCount.
func processMissingRecords(ctx context.Context, outputHandler output.ResumableOutputHandler, blockCount uint64, opts BatchOptions) (uint64, error) {
	missingIds, err := outputHandler.GetMissingRecordIds(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get missing record IDs: %w", err)
	}

	var written uint64
	if len(missingIds) > 0 {
		slog.Warn("Missing records detected", "count", len(missingIds))
		for _, id := range missingIds {
			if id > blockCount {
				break
			}
			if err := writeRecord(ctx, id, outputHandler, opts); err != nil {
				return written, fmt.Errorf("failed to process missing record %d: %w", id, err)
			}
			written++
		}
	}
	return written, nil
}

func writeRecord(ctx context.Context, height uint64, outputHandler output.OutputHandler, opts BatchOptions) error {
	record, err := generator.NewStacksBlockReceivedRecord(height, height+generator.DefaultBurnHeightOffset)
	if err != nil {
		return fmt.Errorf("failed to create record %d: %w", height, err)
	}

	if err := outputHandler.WriteRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to write record %d: %w", height, err)
	}

	metrics.RecordsWrittenTotal.WithLabelValues(opts.OutputLabel).Inc()
	return nil
}
