package drift

import "errors"

var (
	// ErrInvalidConfig marks configuration problems. They are rejected at
	// construction and never surface at runtime.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBadRecord marks records rejected at the ingestion boundary.
	ErrBadRecord = errors.New("invalid record")

	// ErrClosed is returned once the evaluator has been shut down.
	ErrClosed = errors.New("evaluator closed")
)
