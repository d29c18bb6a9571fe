package kv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/kv"
	"github.com/roach88/kvledger/internal/kv/kvtest"
)

func TestMemoryConformance(t *testing.T) {
	kvtest.RunConformance(t, func(t *testing.T) kv.Store {
		return kv.NewMemory()
	})
}

func TestMemoryDetectsTampering(t *testing.T) {
	ctx := context.Background()
	m := kv.NewMemory()
	require.NoError(t, m.Update(ctx, func(tx kv.Txn) error {
		return tx.Set(ctx, []byte("k"), []byte(`{"balance":"90"}`))
	}))

	m.Tamper([]byte("k"), []byte(`{"balance":"9000"}`))

	err := m.View(ctx, func(r kv.Reader) error {
		_, _, err := r.Get(ctx, []byte("k"))
		return err
	})
	assert.ErrorIs(t, err, fault.ErrCorrupt)
}

func TestMemoryClosed(t *testing.T) {
	ctx := context.Background()
	m := kv.NewMemory()
	require.NoError(t, m.Close())

	err := m.Update(ctx, func(tx kv.Txn) error { return nil })
	assert.ErrorIs(t, err, kv.ErrClosed)
	err = m.View(ctx, func(r kv.Reader) error { return nil })
	assert.ErrorIs(t, err, kv.ErrClosed)
}

func TestMemoryLenCountsCommittedOnly(t *testing.T) {
	ctx := context.Background()
	m := kv.NewMemory()
	_ = m.Update(ctx, func(tx kv.Txn) error {
		_ = tx.Set(ctx, []byte("a"), []byte("1"))
		return assert.AnError
	})
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.Update(ctx, func(tx kv.Txn) error {
		return tx.Set(ctx, []byte("a"), []byte("1"))
	}))
	assert.Equal(t, 1, m.Len())
}
