package stream

import (
	"context"
	"io"
	"math/rand"
	"time"

	"github.com/driftwatch/driftwatch/internal/drift"
)

// GeneratorConfig configures the synthetic record source.
type GeneratorConfig struct {
	Features []string
	Mean     float64
	StdDev   float64
	// Shift is added to the mean to simulate distribution drift.
	Shift float64
	// Count limits the number of records produced; 0 means unbounded.
	Count int
	// Interval is the pause between records; 0 produces as fast as possible.
	Interval time.Duration
	Seed     int64
}

// Generator produces gaussian synthetic records, optionally mean-shifted to
// simulate drift. It implements the engine's Stream contract so demos and
// tests can run without a broker. The same seed always produces the same
// sequence.
type Generator struct {
	features  []string
	mean      float64
	stddev    float64
	interval  time.Duration
	rng       *rand.Rand
	remaining int
}

// NewGenerator creates a generator. Missing fields fall back to five standard
// normal features.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if len(cfg.Features) == 0 {
		cfg.Features = []string{"feature1", "feature2", "feature3", "feature4", "feature5"}
	}
	if cfg.StdDev <= 0 {
		cfg.StdDev = 1
	}
	remaining := cfg.Count
	if remaining <= 0 {
		remaining = -1
	}

	return &Generator{
		features:  cfg.Features,
		mean:      cfg.Mean + cfg.Shift,
		stddev:    cfg.StdDev,
		interval:  cfg.Interval,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		remaining: remaining,
	}
}

// Receive implements drift.Stream. It returns io.EOF once the configured
// record count is exhausted.
func (g *Generator) Receive(ctx context.Context) (drift.Record, error) {
	if g.remaining == 0 {
		return drift.Record{}, io.EOF
	}
	if g.interval > 0 {
		select {
		case <-time.After(g.interval):
		case <-ctx.Done():
			return drift.Record{}, ctx.Err()
		}
	} else if ctx.Err() != nil {
		return drift.Record{}, ctx.Err()
	}

	rec := drift.Record{
		Features:  make(map[string]float64, len(g.features)),
		Timestamp: time.Now(),
	}
	for _, feature := range g.features {
		rec.Features[feature] = g.rng.NormFloat64()*g.stddev + g.mean
	}
	if g.remaining > 0 {
		g.remaining--
	}
	return rec, nil
}

// Close implements drift.Stream.
func (g *Generator) Close() error { return nil }

// ReferenceColumns draws n values per feature for a synthetic reference
// dataset, for demos without recorded baseline data.
func (g *Generator) ReferenceColumns(n int) map[string][]float64 {
	columns := make(map[string][]float64, len(g.features))
	for _, feature := range g.features {
		col := make([]float64, n)
		for i := range col {
			col[i] = g.rng.NormFloat64()*g.stddev + g.mean
		}
		columns[feature] = col
	}
	return columns
}
