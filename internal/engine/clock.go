package engine

import "sync/atomic"

// Clock is a monotonic logical clock for decision ordering.
//
// Every decision is stamped with a strictly increasing seq number. Seq
// numbers, never wall-clock timestamps, order the journal and the replay
// stream, so a replayed run reproduces the original order exactly.
//
// Thread-safety: Clock is safe for concurrent use, though the engine's
// sequential design means a single goroutine calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest issued sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
