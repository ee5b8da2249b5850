package drift

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type faultySink struct {
	mode  string // "error" or "panic"
	calls int
}

func (f *faultySink) Name() string { return "faulty" }

func (f *faultySink) Consume(Result) error {
	f.calls++
	if f.mode == "panic" {
		panic("sink exploded")
	}
	return errors.New("delivery failed")
}

// gatedSink blocks delivery until the gate is closed.
type gatedSink struct {
	captureSink
	gate chan struct{}
}

func (g *gatedSink) Consume(r Result) error {
	<-g.gate
	return g.captureSink.Consume(r)
}

func TestEmitterFansOutToAllSinks(t *testing.T) {
	a, b := &captureSink{}, &captureSink{}
	e := NewEmitter(nil, a)
	e.Register(b)

	e.Emit(newResult("f", 0.05, NoDrift, nil, 100, 1000, time.Now()))
	require.NoError(t, e.Close())

	assert.Len(t, a.all(), 1)
	assert.Len(t, b.all(), 1)
}

func TestEmitterIsolatesFailingSink(t *testing.T) {
	faulty := &faultySink{mode: "error"}
	healthy := &captureSink{}
	e := NewEmitter(nil, faulty, healthy)

	e.Emit(newResult("f", 0.3, LikelyDrift, nil, 100, 1000, time.Now()))
	require.NoError(t, e.Close())

	assert.Equal(t, 1, faulty.calls)
	assert.Len(t, healthy.all(), 1)
}

func TestEmitterRecoversFromPanickingSink(t *testing.T) {
	faulty := &faultySink{mode: "panic"}
	healthy := &captureSink{}
	e := NewEmitter(nil, faulty, healthy)

	e.Emit(newResult("f", 0.3, LikelyDrift, nil, 100, 1000, time.Now()))
	require.NoError(t, e.Close())

	assert.Equal(t, 1, faulty.calls)
	assert.Len(t, healthy.all(), 1)
}

func TestEmitterEmitDoesNotBlockOnBusySink(t *testing.T) {
	gated := &gatedSink{gate: make(chan struct{})}
	e := NewEmitter(nil, gated)

	// The first result holds the delivery goroutine on the gate; the rest
	// queue up. Emit must return immediately regardless.
	start := time.Now()
	for i := 0; i < 10; i++ {
		e.Emit(newResult("f", 0.05, NoDrift, nil, 100, 1000, time.Now()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Empty(t, gated.all())

	close(gated.gate)
	require.NoError(t, e.Close())
	assert.Len(t, gated.all(), 10)
}

func TestEmitterClosedDropsResults(t *testing.T) {
	c := &captureSink{}
	e := NewEmitter(nil, c)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close()) // idempotent

	assert.NotPanics(t, func() {
		e.Emit(newResult("f", 0.3, LikelyDrift, nil, 100, 1000, time.Now()))
	})
	assert.Empty(t, c.all())
}

func TestEmitterCloseDeliversQueuedResults(t *testing.T) {
	gated := &gatedSink{gate: make(chan struct{})}
	e := NewEmitter(nil, gated)

	for i := 0; i < 5; i++ {
		e.Emit(newResult("f", 0.05, NoDrift, nil, 100, 1000, time.Now()))
	}

	done := make(chan struct{})
	go func() {
		e.Close()
		close(done)
	}()

	// Close waits for the queue to drain, which needs the gate open.
	select {
	case <-done:
		t.Fatal("Close returned before queued results were delivered")
	case <-time.After(50 * time.Millisecond):
	}

	close(gated.gate)
	<-done
	assert.Len(t, gated.all(), 5)
}
