package utils

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultWorkingDirBase is where scratch directories are created unless
	// the caller picks another base.
	DefaultWorkingDirBase = "tmp/stxgen"

	// StacksBlocksFileName is the replay log name inside a scratch directory.
	StacksBlocksFileName = "stacks_blocks.tsv"
)

// RandomSource yields the suffix of scratch directory names.
type RandomSource interface {
	Uint64() uint64
}

// NewRandomSource returns a RandomSource seeded from the current time.
func NewRandomSource() RandomSource {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// CreateTmpWorkingDir creates base/<random> with all missing parents and
// returns it together with the path of the replay log inside it. Callers own
// the cleanup.
func CreateTmpWorkingDir(base string, rnd RandomSource) (workingDir string, tsvPath string, err error) {
	workingDir = filepath.Join(base, fmt.Sprintf("%d", rnd.Uint64()))
	if err := os.MkdirAll(workingDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create temp working dir: %w", err)
	}
	return workingDir, filepath.Join(workingDir, StacksBlocksFileName), nil
}
