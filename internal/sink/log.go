package sink

import (
	"go.uber.org/zap"

	"github.com/driftwatch/driftwatch/internal/drift"
)

// Log writes every drift result to a structured logger. NoDrift results are
// logged at info level; the drifting tiers are logged at warn and error with
// the per-bucket contribution breakdown attached for diagnosis.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a log sink.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Name implements drift.Sink.
func (s *Log) Name() string { return "log" }

// Consume implements drift.Sink.
func (s *Log) Consume(result drift.Result) error {
	fields := []zap.Field{
		zap.String("feature", result.Feature),
		zap.Float64("psi", result.PSI),
		zap.String("status", result.Status.Label()),
		zap.Int("sample_size", result.SampleSize),
	}

	switch result.Status {
	case drift.NoDrift:
		s.logger.Info("drift check", fields...)
	case drift.PossibleDrift:
		s.logger.Warn("possible drift detected",
			append(fields, zap.Float64s("contributions", result.Contributions))...)
	default:
		s.logger.Error("likely drift detected",
			append(fields, zap.Float64s("contributions", result.Contributions))...)
	}
	return nil
}
