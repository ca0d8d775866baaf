package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/alphaflow/blobkit/pkg/sentiment"
)

// Writer handles CSV writing.
type Writer struct {
	writer *csv.Writer
}

// NewWriter creates a new CSV writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		writer: csv.NewWriter(w),
	}
}

// WriteHeader writes the CSV header row.
func (w *Writer) WriteHeader(headers []string) error {
	return w.writer.Write(headers)
}

// WriteRow writes a single CSV row.
func (w *Writer) WriteRow(row []string) error {
	return w.writer.Write(row)
}

// Flush flushes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	w.writer.Flush()
	return w.writer.Error()
}

// WriteCSV writes a sentiment table as CSV, date column first.
func WriteCSV(out io.Writer, table *sentiment.Table) error {
	w := NewWriter(out)
	if err := w.WriteHeader(table.Header()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, record := range table.Records() {
		if err := w.WriteRow(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	return w.Flush()
}
