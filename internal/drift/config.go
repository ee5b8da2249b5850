package drift

import (
	"fmt"
	"time"
)

// Config holds the drift engine configuration. Validate rejects invalid
// values at construction; a running evaluator never sees them.
type Config struct {
	WindowSize             int           `json:"window_size" mapstructure:"window_size"`
	CheckInterval          int           `json:"check_interval" mapstructure:"check_interval"`
	CheckEvery             time.Duration `json:"check_every" mapstructure:"check_every"`
	MinSamples             int           `json:"min_samples" mapstructure:"min_samples"`
	NumBuckets             int           `json:"num_buckets" mapstructure:"num_buckets"`
	NoDriftThreshold       float64       `json:"psi_no_drift_threshold" mapstructure:"psi_no_drift_threshold"`
	PossibleDriftThreshold float64       `json:"psi_possible_drift_threshold" mapstructure:"psi_possible_drift_threshold"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		WindowSize:             1000,
		CheckInterval:          100,
		MinSamples:             100,
		NumBuckets:             10,
		NoDriftThreshold:       0.1,
		PossibleDriftThreshold: 0.25,
	}
}

// Validate checks the configuration. CheckInterval may be zero when a
// wall-clock trigger (CheckEvery) is configured, and vice versa.
func (c Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window_size must be positive, got %d", ErrInvalidConfig, c.WindowSize)
	}
	if c.CheckInterval < 0 {
		return fmt.Errorf("%w: check_interval must not be negative, got %d", ErrInvalidConfig, c.CheckInterval)
	}
	if c.CheckEvery < 0 {
		return fmt.Errorf("%w: check_every must not be negative, got %v", ErrInvalidConfig, c.CheckEvery)
	}
	if c.CheckInterval == 0 && c.CheckEvery == 0 {
		return fmt.Errorf("%w: either check_interval or check_every must be set", ErrInvalidConfig)
	}
	if c.MinSamples <= 0 {
		return fmt.Errorf("%w: min_samples must be positive, got %d", ErrInvalidConfig, c.MinSamples)
	}
	if c.MinSamples > c.WindowSize {
		return fmt.Errorf("%w: min_samples %d exceeds window_size %d, the window can never satisfy it",
			ErrInvalidConfig, c.MinSamples, c.WindowSize)
	}
	if c.NumBuckets < 2 {
		return fmt.Errorf("%w: num_buckets must be >= 2, got %d", ErrInvalidConfig, c.NumBuckets)
	}
	if c.NoDriftThreshold <= 0 {
		return fmt.Errorf("%w: psi_no_drift_threshold must be positive, got %g", ErrInvalidConfig, c.NoDriftThreshold)
	}
	if c.NoDriftThreshold >= c.PossibleDriftThreshold {
		return fmt.Errorf("%w: psi thresholds must be increasing, got %g >= %g",
			ErrInvalidConfig, c.NoDriftThreshold, c.PossibleDriftThreshold)
	}
	return nil
}
