package sink

import (
	"sync"

	"github.com/driftwatch/driftwatch/internal/drift"
)

// Memory retains the most recent results in a bounded buffer so the HTTP API
// can serve them.
type Memory struct {
	mu      sync.RWMutex
	results []drift.Result
	max     int
}

// NewMemory creates a memory sink retaining up to max results.
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 1000
	}
	return &Memory{max: max}
}

// Name implements drift.Sink.
func (s *Memory) Name() string { return "memory" }

// Consume implements drift.Sink.
func (s *Memory) Consume(result drift.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)
	if len(s.results) > s.max {
		s.results = s.results[len(s.results)-s.max:]
	}
	return nil
}

// Recent returns up to limit results, oldest first. A non-positive limit
// returns everything retained.
func (s *Memory) Recent(limit int) []drift.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.results) {
		limit = len(s.results)
	}
	out := make([]drift.Result, limit)
	copy(out, s.results[len(s.results)-limit:])
	return out
}
