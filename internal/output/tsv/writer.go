// Package tsv reads and writes replay logs of records as tab-delimited rows.
//
// A row is `id \t created_at \t kind \t blob` with no header. Fields are
// written bare unless they contain a tab, a line break or the quote character
// ('), in which case they are wrapped in ' and any ' or \ inside them is
// prefixed with \. Double quotes are never special, so JSON blobs are written
// untouched.
package tsv

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/manifest-network/stxgen/internal/models"
)

const (
	Delimiter = '\t'
	Quote     = '\''
	Escape    = '\\'

	bufferSize = 8 * (1 << 10)
)

// IOError is returned when the log cannot be created, written or read.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Writer appends records to a tab-delimited log file.
type Writer struct {
	path string
	file *os.File
	buf  *bufio.Writer
}

// NewWriter creates the directory tree of path and truncates or creates the
// log file.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &IOError{Op: "create directory", Path: dir, Err: err}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	return &Writer{
		path: path,
		file: file,
		buf:  bufio.NewWriterSize(file, bufferSize),
	}, nil
}

// Path returns the location of the log file.
func (w *Writer) Path() string {
	return w.path
}

// WriteRecord appends one row to the log.
func (w *Writer) WriteRecord(_ context.Context, record *models.Record) error {
	blob := ""
	if record.Blob != nil {
		blob = *record.Blob
	}

	fields := []string{
		strconv.FormatUint(record.ID, 10),
		record.CreatedAt,
		string(record.Kind),
		blob,
	}

	var row strings.Builder
	for i, field := range fields {
		if i > 0 {
			row.WriteByte(Delimiter)
		}
		writeField(&row, field)
	}
	row.WriteByte('\n')

	if _, err := w.buf.WriteString(row.String()); err != nil {
		return &IOError{Op: "write", Path: w.path, Err: err}
	}
	return nil
}

// Flush writes buffered rows to the file.
func (w *Writer) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return &IOError{Op: "flush", Path: w.path, Err: err}
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	flushErr := w.Flush()
	if err := w.file.Close(); err != nil && flushErr == nil {
		return &IOError{Op: "close", Path: w.path, Err: err}
	}
	return flushErr
}

func needsQuotes(field string) bool {
	return strings.ContainsAny(field, "\t\n\r'")
}

func writeField(b *strings.Builder, field string) {
	if !needsQuotes(field) {
		b.WriteString(field)
		return
	}

	b.WriteByte(Quote)
	for i := 0; i < len(field); i++ {
		c := field[i]
		if c == Quote || c == Escape {
			b.WriteByte(Escape)
		}
		b.WriteByte(c)
	}
	b.WriteByte(Quote)
}
