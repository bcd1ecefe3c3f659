package miner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/manifest-network/stxgen/internal/client"
	"github.com/manifest-network/stxgen/internal/config"
	"github.com/manifest-network/stxgen/internal/utils"
)

// retryBackoff is the base delay between retried stacks block announcements.
var retryBackoff = time.Second

// Announcer announces blocks to a mock node.
type Announcer interface {
	AnnounceStacksBlock(ctx context.Context, port uint16, height, burnHeight uint64) error
	AnnounceBurnBlock(ctx context.Context, stacksPort, bitcoinPort uint16, burnHeight uint64) error
}

// MineBlocks simulates a live chain: for every height it advances the mock
// burn chain, then announces the stacks block anchored to it, and waits one
// block time before the next height. It returns nil when ctx is cancelled.
func MineBlocks(ctx context.Context, announcer Announcer, cfg config.MineConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid mine configuration: %w", err)
	}

	stop := cfg.LastHeight()
	slog.Info("Mining blocks", "range", fmt.Sprintf("[%d, %d]", cfg.StartHeight, stop), "burnOffset", cfg.BurnOffset)

	for i := uint64(0); i < cfg.BlockCount; i++ {
		height := cfg.StartHeight + i
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		burnHeight := utils.BurnHeightFor(height, cfg.BurnOffset)
		if err := mineBlock(ctx, announcer, cfg, height, burnHeight); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to mine block %d: %w", height, err)
		}
		slog.Info("Mined block", "height", height, "burnHeight", burnHeight)

		if height == stop || cfg.BlockTime <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.BlockTime):
		}
	}
	return nil
}

// mineBlock announces one burn block and its stacks block. The burn block
// handshake advances the mock chain tip, so it is never retried.
func mineBlock(ctx context.Context, announcer Announcer, cfg config.MineConfig, height, burnHeight uint64) error {
	if err := announcer.AnnounceBurnBlock(ctx, cfg.StacksPort, cfg.BitcoinPort, burnHeight); err != nil {
		var protoErr *client.ProtocolError
		if errors.As(err, &protoErr) {
			if tip, parseErr := protoErr.AcknowledgedHeight(); parseErr == nil {
				slog.Error("Mock burn chain out of sync", "expected", burnHeight, "acknowledged", tip)
			}
		}
		return err
	}

	return announceWithRetry(ctx, cfg.MaxRetries, func() error {
		return announcer.AnnounceStacksBlock(ctx, cfg.StacksPort, height, burnHeight)
	})
}

// announceWithRetry retries network failures up to maxRetries times with a
// linearly growing delay. Any other error is returned immediately.
func announceWithRetry(ctx context.Context, maxRetries uint, announce func() error) error {
	var lastErr error
	for attempt := uint(0); attempt <= maxRetries; attempt++ {
		err := announce()
		if err == nil {
			return nil
		}

		var netErr *client.NetworkError
		if !errors.As(err, &netErr) {
			return err
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}
		slog.Warn("Retrying announcement", "attempt", attempt+1, "maxRetries", maxRetries, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * retryBackoff):
		}
	}
	return lastErr
}
