package generator

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/manifest-network/stxgen/internal/models"
)

// EncodeError is returned when a synthesized payload cannot be serialized.
type EncodeError struct {
	Height uint64
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to serialize stacks block %d: %v", e.Height, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// NewStacksBlockReceivedRecord synthesizes the block at height and wraps its
// JSON encoding in a replay record keyed by height.
func NewStacksBlockReceivedRecord(height, burnHeight uint64) (*models.Record, error) {
	return encodeRecord(NewStacksBlock(height, burnHeight), json.Marshal)
}

func encodeRecord(block *models.Block, marshal func(any) ([]byte, error)) (*models.Record, error) {
	data, err := marshal(block)
	if err != nil {
		return nil, &EncodeError{Height: block.BlockHeight, Err: err}
	}

	blob := string(data)
	return &models.Record{
		ID:        block.BlockHeight,
		CreatedAt: strconv.FormatUint(block.BlockHeight, 10),
		Kind:      models.StacksBlockReceived,
		Blob:      &blob,
	}, nil
}

// DecodeStacksBlock decodes the block carried by a stacks_block_received record.
func DecodeStacksBlock(record *models.Record) (*models.Block, error) {
	if record.Kind != models.StacksBlockReceived {
		return nil, fmt.Errorf("record %d has kind %s, want %s", record.ID, record.Kind, models.StacksBlockReceived)
	}
	if record.Blob == nil {
		return nil, fmt.Errorf("record %d has no payload", record.ID)
	}

	var block models.Block
	if err := json.Unmarshal([]byte(*record.Blob), &block); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stacks block from record %d: %w", record.ID, err)
	}
	return &block, nil
}
