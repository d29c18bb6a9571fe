package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs issues invocation ids "<prefix>-0001", "<prefix>-0002", ...
//
// This enables deterministic logs and golden snapshot comparison.
//
// Thread-safety: SequentialIDs is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. If prefix is empty, "test-inv" is used.
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "test-inv"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate implements host.IDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
