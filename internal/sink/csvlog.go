package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/driftwatch/driftwatch/internal/drift"
)

// CSVLog appends one row per result to a CSV drift log, creating the file and
// writing the header on first use.
type CSVLog struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// NewCSVLog opens (or creates) the drift log at path.
func NewCSVLog(path string) (*CSVLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	info, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open drift log: %w", err)
	}

	w := csv.NewWriter(f)
	if statErr != nil || info.Size() == 0 {
		if err := w.Write([]string{"timestamp", "feature", "psi_score", "drift_status"}); err != nil {
			f.Close()
			return nil, fmt.Errorf("write drift log header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write drift log header: %w", err)
		}
	}

	return &CSVLog{path: path, file: f, w: w}, nil
}

// Name implements drift.Sink.
func (s *CSVLog) Name() string { return "csv" }

// Consume implements drift.Sink.
func (s *CSVLog) Consume(result drift.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := []string{
		result.Timestamp.Format("2006-01-02 15:04:05"),
		result.Feature,
		strconv.FormatFloat(result.PSI, 'f', 4, 64),
		result.Status.String(),
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("append drift log: %w", err)
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes and closes the underlying file.
func (s *CSVLog) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
