package kv

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by a Memory store after Close.
var ErrClosed = errors.New("kv: store closed")

type entry struct {
	value  []byte
	digest string
}

// Memory is an in-process Store backed by a map.
//
// Writers are serialized by a mutex. An Update stages its writes in an
// overlay and applies them only when the callback succeeds.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	closed  bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

// View implements Store.
func (m *Memory) View(ctx context.Context, fn func(Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return fn(&memTxn{m: m})
}

// Update implements Store.
func (m *Memory) Update(ctx context.Context, fn func(Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	tx := &memTxn{m: m, staged: make(map[string]entry)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for k, e := range tx.staged {
		m.entries[k] = e
	}
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of committed entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Tamper overwrites the committed value at key without updating its digest.
// It exists for corruption tests.
func (m *Memory) Tamper(key, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[string(key)]
	e.value = append([]byte(nil), value...)
	m.entries[string(key)] = e
}

type memTxn struct {
	m      *Memory
	staged map[string]entry // nil for read-only views
}

func (t *memTxn) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	e, ok := t.staged[string(key)]
	if !ok {
		e, ok = t.m.entries[string(key)]
	}
	if !ok {
		return nil, false, nil
	}
	if err := Verify(key, e.value, e.digest); err != nil {
		return nil, false, err
	}
	return append([]byte(nil), e.value...), true, nil
}

func (t *memTxn) Set(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := append([]byte(nil), value...)
	t.staged[string(key)] = entry{value: v, digest: Digest(key, v)}
	return nil
}
