package testutil

import "sync"

// DeterministicClock is a host.Clock for tests: readings start at Start and
// advance by Step per call.
//
// Unlike host.LogicalClock, DeterministicClock can be reset for test reuse.
// This enables the same scenario to run repeatedly with identical timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start uint64
	step  uint64
	next  uint64
}

// NewDeterministicClock creates a clock whose first reading is start.
// A zero step freezes the clock.
func NewDeterministicClock(start, step uint64) *DeterministicClock {
	return &DeterministicClock{start: start, step: step, next: start}
}

// Now returns the current reading and advances by step.
func (c *DeterministicClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.next
	c.next += c.step
	return v
}

// Peek returns the next reading without advancing.
func (c *DeterministicClock) Peek() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Reset rewinds the clock to its start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = c.start
}
