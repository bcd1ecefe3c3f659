package tsv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/manifest-network/stxgen/internal/models"
)

const fieldsPerRow = 4

// Reader reads records back from a tab-delimited log.
type Reader struct {
	path string
	file *os.File
	buf  *bufio.Reader
	row  int
}

// NewReader opens the log at path.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	return &Reader{
		path: path,
		file: file,
		buf:  bufio.NewReaderSize(file, bufferSize),
	}, nil
}

// Next returns the next record, or io.EOF once the log is exhausted.
func (r *Reader) Next() (*models.Record, error) {
	fields, err := r.readRow()
	if err != nil {
		return nil, err
	}
	r.row++

	if len(fields) != fieldsPerRow {
		return nil, fmt.Errorf("row %d: expected %d fields, got %d", r.row, fieldsPerRow, len(fields))
	}

	id, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("row %d: invalid id: %w", r.row, err)
	}

	kind, err := models.ParseRecordKind(fields[2])
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", r.row, err)
	}

	record := &models.Record{
		ID:        id,
		CreatedAt: fields[1],
		Kind:      kind,
	}
	if kind.HasPayload() && fields[3] != "" {
		blob := fields[3]
		record.Blob = &blob
	}

	return record, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// readRow splits the next row into its fields, honoring quoted fields.
func (r *Reader) readRow() ([]string, error) {
	var (
		fields     []string
		field      strings.Builder
		quoted     bool
		fieldStart = true
		consumed   bool
	)

	for {
		c, err := r.buf.ReadByte()
		if errors.Is(err, io.EOF) {
			if quoted {
				return nil, fmt.Errorf("row %d: unterminated quoted field", r.row+1)
			}
			if !consumed {
				return nil, io.EOF
			}
			return append(fields, field.String()), nil
		}
		if err != nil {
			return nil, &IOError{Op: "read", Path: r.path, Err: err}
		}
		consumed = true

		if quoted {
			switch c {
			case Escape:
				next, err := r.buf.ReadByte()
				if err != nil {
					return nil, fmt.Errorf("row %d: unterminated quoted field", r.row+1)
				}
				field.WriteByte(next)
			case Quote:
				quoted = false
			default:
				field.WriteByte(c)
			}
			continue
		}

		switch c {
		case Quote:
			if fieldStart {
				quoted = true
				fieldStart = false
				continue
			}
			field.WriteByte(c)
		case Delimiter:
			fields = append(fields, field.String())
			field.Reset()
			fieldStart = true
			continue
		case '\n':
			return append(fields, field.String()), nil
		case '\r':
		default:
			field.WriteByte(c)
		}
		fieldStart = false
	}
}

// ReadAll reads every record of the log at path.
func ReadAll(path string) ([]*models.Record, error) {
	reader, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var records []*models.Record
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}
