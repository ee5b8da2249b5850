package drift

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ReferenceDataset is an immutable named collection of numeric feature
// columns, captured once at startup and read-only thereafter.
type ReferenceDataset struct {
	name     string
	features []string
	columns  map[string][]float64
}

// NewReferenceDataset builds a dataset from column-oriented data. NaN and
// infinite values are dropped; a column left empty after filtering is a
// configuration error.
func NewReferenceDataset(name string, columns map[string][]float64) (*ReferenceDataset, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: reference dataset %q has no columns", ErrInvalidConfig, name)
	}

	features := make([]string, 0, len(columns))
	for feature := range columns {
		features = append(features, feature)
	}
	sort.Strings(features)

	clean := make(map[string][]float64, len(columns))
	for _, feature := range features {
		col := make([]float64, 0, len(columns[feature]))
		for _, v := range columns[feature] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			col = append(col, v)
		}
		if len(col) == 0 {
			return nil, fmt.Errorf("%w: reference column %q has no finite values", ErrInvalidConfig, feature)
		}
		clean[feature] = col
	}

	return &ReferenceDataset{name: name, features: features, columns: clean}, nil
}

// Name returns the dataset name.
func (r *ReferenceDataset) Name() string { return r.name }

// Features returns the tracked feature names in stable (sorted) order.
func (r *ReferenceDataset) Features() []string {
	out := make([]string, len(r.features))
	copy(out, r.features)
	return out
}

// Column returns the reference sample for one feature, or nil for an unknown
// feature. Callers must treat the slice as read-only.
func (r *ReferenceDataset) Column(feature string) []float64 {
	return r.columns[feature]
}

// LoadReferenceCSV reads a column-oriented reference table from a CSV file
// with a header row. Columns that do not parse as numbers throughout
// (identifiers, timestamps, labels) are skipped.
func LoadReferenceCSV(name, path string) (*ReferenceDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read reference file %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: reference file %s has no data rows", ErrInvalidConfig, path)
	}

	header := rows[0]
	columns := make(map[string][]float64, len(header))
	skipped := make(map[int]bool)

	for _, row := range rows[1:] {
		for i, cell := range row {
			if i >= len(header) || skipped[i] {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				skipped[i] = true
				delete(columns, header[i])
				continue
			}
			columns[header[i]] = append(columns[header[i]], v)
		}
	}

	return NewReferenceDataset(name, columns)
}
