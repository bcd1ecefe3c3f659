package output

import (
	"context"

	"github.com/manifest-network/stxgen/internal/models"
)

// OutputHandler is a sink for replay records.
type OutputHandler interface {
	// WriteRecord appends a record to the output.
	WriteRecord(ctx context.Context, record *models.Record) error

	// Close flushes pending writes and closes the output.
	Close() error
}

// ResumableOutputHandler is an output that can report what it already holds,
// so a batch run can back-fill gaps and continue after the latest record.
type ResumableOutputHandler interface {
	OutputHandler

	// GetLatestRecord returns the record with the highest id, or nil when empty.
	GetLatestRecord(ctx context.Context) (*models.Record, error)

	// GetMissingRecordIds returns the ids missing below the latest record.
	GetMissingRecordIds(ctx context.Context) ([]uint64, error)
}
