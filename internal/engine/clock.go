package engine

import "sync/atomic"

// Clock is the monotonic logical clock stamping every event with a strictly
// increasing seq number. Event ordering never depends on wall time: the seq
// is the total order of the deployment's log, and replay reproduces it
// exactly.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though the engine's guard means only one operation reads it at a time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a specific sequence number.
// Used when a deployment is reopened: the clock resumes from the store's
// highest persisted seq so new events extend the log without collision.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
