package drift

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State describes what the evaluator is currently doing.
type State int

const (
	Idle State = iota
	Accumulating
	Evaluating
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Accumulating:
		return "accumulating"
	case Evaluating:
		return "evaluating"
	default:
		return "idle"
	}
}

// Stream is the inbound transport capability. Receive blocks until a record
// is available, the context is cancelled, or the stream ends with io.EOF.
// Delivery semantics, reconnection and backoff belong to the implementation.
type Stream interface {
	Receive(ctx context.Context) (Record, error)
	Close() error
}

// Instrumentation receives engine-level signals that sinks cannot observe.
type Instrumentation interface {
	RecordIngested()
	EvaluationFinished(d time.Duration, results int)
}

// Stats is a point-in-time view of the engine, served by the status endpoint.
// LastCheck is nil until the first evaluation completes.
type Stats struct {
	State       string     `json:"state"`
	Ingested    uint64     `json:"records_ingested"`
	WindowLen   int        `json:"window_len"`
	WindowCap   int        `json:"window_capacity"`
	SinceCheck  int        `json:"records_since_check"`
	Evaluations uint64     `json:"evaluations"`
	LastCheck   *time.Time `json:"last_check,omitempty"`
	Features    []string   `json:"features"`
}

// Evaluator owns the sliding window and the trigger policy. Records flow in
// through OnRecord; classified results flow out through the emitter. The
// reference dataset and its bucket specs are computed once at construction
// and never change.
type Evaluator struct {
	cfg     Config
	ref     *ReferenceDataset
	buckets map[string]BucketSpec
	known   map[string]struct{}
	window  *Window
	emitter *Emitter
	logger  *zap.Logger
	instr   Instrumentation

	mu          sync.Mutex
	state       State
	sinceCheck  int
	nextCheckAt int
	lastCheck   time.Time
	ingested    uint64
	evaluations uint64
	closed      bool
	inflight    sync.WaitGroup
}

// NewEvaluator validates the configuration, precomputes the bucket specs for
// every reference feature and returns an evaluator ready to ingest records.
func NewEvaluator(cfg Config, ref *ReferenceDataset, emitter *Emitter, logger *zap.Logger) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ref == nil || len(ref.Features()) == 0 {
		return nil, fmt.Errorf("%w: reference dataset is empty", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = NewEmitter(logger)
	}

	features := ref.Features()
	buckets := make(map[string]BucketSpec, len(features))
	known := make(map[string]struct{}, len(features))
	for _, feature := range features {
		spec, err := BuildBuckets(feature, ref.Column(feature), cfg.NumBuckets)
		if err != nil {
			return nil, fmt.Errorf("buckets for %q: %w", feature, err)
		}
		if spec.NumBuckets() < cfg.NumBuckets {
			logger.Warn("reference has fewer distinct values than requested buckets",
				zap.String("feature", feature),
				zap.Int("requested", cfg.NumBuckets),
				zap.Int("effective", spec.NumBuckets()))
		}
		buckets[feature] = spec
		known[feature] = struct{}{}
	}

	return &Evaluator{
		cfg:         cfg,
		ref:         ref,
		buckets:     buckets,
		known:       known,
		window:      NewWindow(cfg.WindowSize),
		emitter:     emitter,
		logger:      logger,
		state:       Idle,
		nextCheckAt: countThreshold(cfg),
	}, nil
}

// countThreshold returns the counter value at which the next count-triggered
// check fires. With a duration-only trigger the counter never fires.
func countThreshold(cfg Config) int {
	if cfg.CheckInterval <= 0 {
		return math.MaxInt
	}
	return cfg.CheckInterval
}

// SetInstrumentation attaches engine-level instrumentation. Call before the
// first record is ingested.
func (e *Evaluator) SetInstrumentation(in Instrumentation) { e.instr = in }

// Config returns the engine configuration.
func (e *Evaluator) Config() Config { return e.cfg }

// State returns the current evaluator state.
func (e *Evaluator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stats returns a point-in-time view of the engine.
func (e *Evaluator) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var lastCheck *time.Time
	if !e.lastCheck.IsZero() {
		t := e.lastCheck
		lastCheck = &t
	}
	return Stats{
		State:       e.state.String(),
		Ingested:    e.ingested,
		WindowLen:   e.window.Len(),
		WindowCap:   e.window.Cap(),
		SinceCheck:  e.sinceCheck,
		Evaluations: e.evaluations,
		LastCheck:   lastCheck,
		Features:    e.ref.Features(),
	}
}

// OnRecord ingests one record. Ingestion never blocks on a full window; the
// oldest record is evicted instead. When the count trigger and the
// minimum-sample gate are both satisfied the evaluation cycle runs before
// OnRecord returns; its results are queued for delivery, never awaited, so a
// slow sink cannot stall ingestion. Duplicate deliveries from an
// at-least-once transport are counted as additional samples, not
// deduplicated.
func (e *Evaluator) OnRecord(rec Record) error {
	if err := e.validate(rec); err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.state == Idle {
		e.state = Accumulating
	}
	e.window.Append(rec)
	e.sinceCheck++
	e.ingested++
	if e.instr != nil {
		e.instr.RecordIngested()
	}

	if e.sinceCheck < e.nextCheckAt || e.state == Evaluating {
		e.mu.Unlock()
		return nil
	}
	if e.window.Len() < e.cfg.MinSamples {
		// Not enough data yet: defer the check a full interval without
		// resetting the counter.
		e.nextCheckAt += e.cfg.CheckInterval
		e.logger.Debug("evaluation deferred",
			zap.Int("window_len", e.window.Len()),
			zap.Int("min_samples", e.cfg.MinSamples))
		e.mu.Unlock()
		return nil
	}

	e.runCycleLocked()
	return nil
}

// CheckNow runs an evaluation cycle if the window holds enough samples,
// regardless of the record counter. Used by the wall-clock trigger.
func (e *Evaluator) CheckNow() {
	e.mu.Lock()
	if e.closed || e.state == Evaluating || e.window.Len() < e.cfg.MinSamples {
		e.mu.Unlock()
		return
	}
	e.runCycleLocked()
}

// runCycleLocked snapshots the window, resets the trigger state, and runs the
// PSI evaluation outside the lock. Called with e.mu held; returns with it
// released.
func (e *Evaluator) runCycleLocked() {
	e.state = Evaluating
	snapshot := e.window.Snapshot()
	e.sinceCheck = 0
	e.nextCheckAt = countThreshold(e.cfg)
	e.inflight.Add(1)
	e.mu.Unlock()

	start := time.Now()
	results := e.evaluate(snapshot, start)
	for _, res := range results {
		e.emitter.Emit(res)
	}
	if e.instr != nil {
		e.instr.EvaluationFinished(time.Since(start), len(results))
	}

	e.mu.Lock()
	e.evaluations++
	e.lastCheck = start
	if !e.closed {
		e.state = Accumulating
	}
	e.mu.Unlock()
	e.inflight.Done()
}

// evaluate computes one result per feature plus the overall aggregate. PSI is
// pure, so this runs without holding any lock.
func (e *Evaluator) evaluate(snapshot []Record, at time.Time) []Result {
	features := e.ref.Features()
	results := make([]Result, 0, len(features)+1)
	psiSum := 0.0

	for _, feature := range features {
		sample := make([]float64, len(snapshot))
		for i, rec := range snapshot {
			sample[i] = rec.Features[feature]
		}
		reference := e.ref.Column(feature)

		psi, contributions, err := ComputePSI(e.buckets[feature], reference, sample)
		if err != nil {
			e.logger.Error("psi computation failed",
				zap.String("feature", feature),
				zap.Error(err))
			continue
		}
		if math.IsNaN(psi) || math.IsInf(psi, 0) {
			// The probability floor makes this unreachable; a non-finite
			// score here is a bug, not a data problem.
			e.logger.Error("non-finite psi score",
				zap.String("feature", feature),
				zap.Float64("psi", psi))
			continue
		}

		status := Classify(psi, e.cfg.NoDriftThreshold, e.cfg.PossibleDriftThreshold)
		results = append(results, newResult(feature, psi, status, contributions, len(sample), len(reference), at))
		psiSum += psi
	}

	if len(results) > 0 {
		avg := psiSum / float64(len(results))
		status := Classify(avg, e.cfg.NoDriftThreshold, e.cfg.PossibleDriftThreshold)
		results = append(results, newResult(OverallFeature, avg, status, nil, len(snapshot), 0, at))
	}

	return results
}

// validate checks a record against the tracked feature set at the ingestion
// boundary so malformed input never reaches a bucket lookup.
func (e *Evaluator) validate(rec Record) error {
	for feature := range e.known {
		v, ok := rec.Features[feature]
		if !ok {
			return fmt.Errorf("%w: missing feature %q", ErrBadRecord, feature)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: feature %q is not finite", ErrBadRecord, feature)
		}
	}
	for feature := range rec.Features {
		if _, ok := e.known[feature]; !ok {
			return fmt.Errorf("%w: unknown feature %q", ErrBadRecord, feature)
		}
	}
	return nil
}

// Run pumps records from the stream into the evaluator until the stream ends
// or the context is cancelled, then shuts the evaluator down. When a
// wall-clock check interval is configured, a ticker drives additional
// evaluations alongside the count trigger. Invalid records are logged and
// skipped; the loop only stops for transport errors.
func (e *Evaluator) Run(ctx context.Context, stream Stream) error {
	defer e.Close()

	if e.cfg.CheckEvery > 0 {
		ticker := time.NewTicker(e.cfg.CheckEvery)
		defer ticker.Stop()
		done := make(chan struct{})
		defer close(done)
		go func() {
			for {
				select {
				case <-ticker.C:
					e.CheckNow()
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for {
		rec, err := stream.Receive(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive: %w", err)
		}

		if err := e.OnRecord(rec); err != nil {
			if errors.Is(err, ErrClosed) {
				return err
			}
			e.logger.Warn("record rejected", zap.Error(err))
		}
	}
}

// Close stops accepting records, waits for any in-flight evaluation to
// finish, and drains queued results to the sinks. Safe to call more than
// once.
func (e *Evaluator) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.state = Idle
	e.mu.Unlock()

	e.inflight.Wait()
	return e.emitter.Close()
}
