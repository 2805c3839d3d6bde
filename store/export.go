package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// JSONLWriter writes stored records as newline-delimited JSON for offline
// inspection.
type JSONLWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONLWriter initialises the export writer.
func NewJSONLWriter(filename string) (*JSONLWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create export file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONLWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends records in JSONL format.
func (w *JSONLWriter) Write(records []models.StoredRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, rec := range records {
		if err := w.encoder.Encode(rec); err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ID, err)
		}
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("flush export writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("flush export writer: %w", err)
	}
	return w.file.Close()
}

// Validate ensures the export file has data.
func (w *JSONLWriter) Validate() error {
	info, err := w.file.Stat()
	if err != nil {
		return fmt.Errorf("stat export file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("export file is empty")
	}
	return nil
}

// Export dumps every stored record to a JSONL file, returning the record
// count.
func Export(ctx context.Context, s *Store, filename string) (int, error) {
	records, err := s.AllRecords(ctx)
	if err != nil {
		return 0, err
	}

	w, err := NewJSONLWriter(filename)
	if err != nil {
		return 0, err
	}
	if err := w.Write(records); err != nil {
		w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return len(records), nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
