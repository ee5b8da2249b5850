package drift

import "sync"

// Window is a bounded FIFO of the most recent records, backed by a ring
// buffer. Appends never block: once capacity is reached the oldest record is
// evicted. A single mutex serializes appends against snapshots, so a snapshot
// reflects every append that happened before it was requested and never
// observes a partially applied eviction.
type Window struct {
	mu    sync.Mutex
	buf   []Record
	start int
	count int
}

// NewWindow creates a window with a fixed capacity.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{buf: make([]Record, capacity)}
}

// Append adds a record at the tail, evicting the head when full.
func (w *Window) Append(rec Record) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.count < len(w.buf) {
		w.buf[(w.start+w.count)%len(w.buf)] = rec
		w.count++
		return
	}
	w.buf[w.start] = rec
	w.start = (w.start + 1) % len(w.buf)
}

// Len returns the number of records currently held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Cap returns the fixed capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Full reports whether the window has reached capacity.
func (w *Window) Full() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count == len(w.buf)
}

// Snapshot returns a point-in-time copy of the window in arrival order.
func (w *Window) Snapshot() []Record {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Record, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}
