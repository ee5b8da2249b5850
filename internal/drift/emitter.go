package drift

import (
	"sync"

	"go.uber.org/zap"
)

// Sink consumes classified drift results. Implementations are called from the
// emitter's delivery goroutine, never from the ingestion path, so a slow sink
// delays the other sinks but not record intake.
type Sink interface {
	Name() string
	Consume(result Result) error
}

// queueSize bounds the number of undelivered results. A full queue drops new
// results instead of stalling the evaluation cycle.
const queueSize = 256

// Emitter fans results out to the registered sinks from a dedicated delivery
// goroutine; Emit only queues. Each sink call is isolated: an error or panic
// in one sink is logged and never reaches the other sinks.
type Emitter struct {
	logger *zap.Logger
	queue  chan Result
	done   chan struct{}

	mu     sync.Mutex
	sinks  []Sink
	closed bool
}

// NewEmitter creates an emitter over the given sinks and starts its delivery
// goroutine.
func NewEmitter(logger *zap.Logger, sinks ...Sink) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Emitter{
		logger: logger,
		queue:  make(chan Result, queueSize),
		done:   make(chan struct{}),
		sinks:  sinks,
	}
	go e.deliver()
	return e
}

// Register adds a sink. Call before the evaluator starts emitting.
func (e *Emitter) Register(sink Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, sink)
}

// Emit queues the result for delivery and returns immediately. Results are
// dropped with a warning when the queue is full or the emitter is closed.
func (e *Emitter) Emit(result Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.queue <- result:
	default:
		e.logger.Warn("delivery queue full, dropping result",
			zap.String("feature", result.Feature),
			zap.String("status", result.Status.Label()))
	}
}

// Close stops accepting results and blocks until everything already queued
// has been delivered. Safe to call more than once.
func (e *Emitter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	close(e.queue)
	<-e.done
	return nil
}

func (e *Emitter) deliver() {
	defer close(e.done)
	for result := range e.queue {
		e.mu.Lock()
		sinks := make([]Sink, len(e.sinks))
		copy(sinks, e.sinks)
		e.mu.Unlock()

		for _, s := range sinks {
			e.dispatch(s, result)
		}
	}
}

func (e *Emitter) dispatch(s Sink, result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("sink panicked",
				zap.String("sink", s.Name()),
				zap.Any("panic", r))
		}
	}()

	if err := s.Consume(result); err != nil {
		e.logger.Warn("sink failed",
			zap.String("sink", s.Name()),
			zap.String("feature", result.Feature),
			zap.Error(err))
	}
}
