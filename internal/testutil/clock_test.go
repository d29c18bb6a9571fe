package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/kvledger/internal/host"
)

var _ host.Clock = (*DeterministicClock)(nil)

func TestDeterministicClockSteps(t *testing.T) {
	c := NewDeterministicClock(1000, 5)

	assert.Equal(t, uint64(1000), c.Now())
	assert.Equal(t, uint64(1005), c.Now())
	assert.Equal(t, uint64(1010), c.Peek())
	assert.Equal(t, uint64(1010), c.Now())
}

func TestDeterministicClockReset(t *testing.T) {
	c := NewDeterministicClock(7, 1)
	c.Now()
	c.Now()
	c.Reset()
	assert.Equal(t, uint64(7), c.Now())
}

func TestDeterministicClockFrozen(t *testing.T) {
	c := NewDeterministicClock(42, 0)
	assert.Equal(t, uint64(42), c.Now())
	assert.Equal(t, uint64(42), c.Now())
}

func TestDeterministicClockConcurrent(t *testing.T) {
	c := NewDeterministicClock(0, 1)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(100), c.Peek())
}
