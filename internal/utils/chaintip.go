package utils

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseChainTip parses the plain-text decimal height a mock bitcoin node
// answers to increment-chain-tip.
func ParseChainTip(s string) (uint64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, errors.New("empty chain tip")
	}

	height, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, errors.WithMessage(err, "error parsing chain tip")
	}
	return height, nil
}

// BurnHeightFor returns the burn height paired with a stacks height when burn
// blocks run a fixed offset ahead.
func BurnHeightFor(height, offset uint64) uint64 {
	return height + offset
}
