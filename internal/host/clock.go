package host

import (
	"sync/atomic"
	"time"
)

// Clock supplies the ledger timestamp an invocation observes.
// Runtime reads it once per invocation.
type Clock interface {
	Now() uint64
}

// SystemClock reports wall-clock Unix seconds.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// LogicalClock is a monotonic counter usable as a Clock.
//
// Every reading is strictly greater than the previous one, which makes it
// useful when timestamps must order invocations deterministically.
//
// Thread-safety: LogicalClock is safe for concurrent use (atomic operations).
type LogicalClock struct {
	seq atomic.Uint64
}

// NewLogicalClock creates a clock whose first reading is start+1.
func NewLogicalClock(start uint64) *LogicalClock {
	c := &LogicalClock{}
	c.seq.Store(start)
	return c
}

// Now returns the next value and advances the clock.
func (c *LogicalClock) Now() uint64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out without advancing.
func (c *LogicalClock) Current() uint64 {
	return c.seq.Load()
}

// FixedClock always reports the same instant.
type FixedClock uint64

// Now implements Clock.
func (c FixedClock) Now() uint64 {
	return uint64(c)
}
