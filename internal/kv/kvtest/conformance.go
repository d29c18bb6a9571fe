// Package kvtest holds the behavioral contract every kv.Store backend must
// satisfy, as a reusable test suite.
package kvtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvledger/internal/kv"
)

// NewStore constructs a fresh, empty store for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) kv.Store

var errAbort = errors.New("abort")

// RunConformance exercises the transactional get/set contract.
func RunConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		err := s.View(ctx, func(r kv.Reader) error {
			v, ok, err := r.Get(ctx, []byte("absent"))
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, v)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("SetThenGet", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(ctx, func(tx kv.Txn) error {
			return tx.Set(ctx, []byte("k"), []byte(`{"v":1}`))
		}))

		require.NoError(t, s.View(ctx, func(r kv.Reader) error {
			v, ok, err := r.Get(ctx, []byte("k"))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"v":1}`, string(v))
			return nil
		}))
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		s := newStore(t)
		for _, v := range []string{"one", "two"} {
			v := v
			require.NoError(t, s.Update(ctx, func(tx kv.Txn) error {
				return tx.Set(ctx, []byte("k"), []byte(v))
			}))
		}
		assertValue(t, s, "k", "two")
	})

	t.Run("ReadYourWrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(ctx, func(tx kv.Txn) error {
			require.NoError(t, tx.Set(ctx, []byte("k"), []byte("staged")))
			v, ok, err := tx.Get(ctx, []byte("k"))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "staged", string(v))
			return nil
		}))
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(ctx, func(tx kv.Txn) error {
			return tx.Set(ctx, []byte("a"), []byte("before"))
		}))

		err := s.Update(ctx, func(tx kv.Txn) error {
			require.NoError(t, tx.Set(ctx, []byte("a"), []byte("after")))
			require.NoError(t, tx.Set(ctx, []byte("b"), []byte("new")))
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)

		assertValue(t, s, "a", "before")
		assertAbsent(t, s, "b")
	})

	t.Run("RollbackOnPanic", func(t *testing.T) {
		s := newStore(t)
		assert.Panics(t, func() {
			_ = s.Update(ctx, func(tx kv.Txn) error {
				_ = tx.Set(ctx, []byte("p"), []byte("x"))
				panic("boom")
			})
		})
		assertAbsent(t, s, "p")

		// The store must still be usable after a panicking transaction.
		require.NoError(t, s.Update(ctx, func(tx kv.Txn) error {
			return tx.Set(ctx, []byte("p"), []byte("y"))
		}))
		assertValue(t, s, "p", "y")
	})

	t.Run("MultiKeyAtomicCommit", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(ctx, func(tx kv.Txn) error {
			if err := tx.Set(ctx, []byte("session"), []byte("paid")); err != nil {
				return err
			}
			return tx.Set(ctx, []byte("balance"), []byte("90"))
		}))
		assertValue(t, s, "session", "paid")
		assertValue(t, s, "balance", "90")
	})

	t.Run("BinaryKeysAndValues", func(t *testing.T) {
		s := newStore(t)
		key := []byte(`["BALANCE","account","é"]`)
		val := []byte{0x00, 0xff, 0x10}
		require.NoError(t, s.Update(ctx, func(tx kv.Txn) error {
			return tx.Set(ctx, key, val)
		}))
		require.NoError(t, s.View(ctx, func(r kv.Reader) error {
			v, ok, err := r.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, val, v)
			return nil
		}))
	})
}

func assertValue(t *testing.T, s kv.Store, key, want string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(r kv.Reader) error {
		v, ok, err := r.Get(ctx, []byte(key))
		require.NoError(t, err)
		require.True(t, ok, "key %q missing", key)
		assert.Equal(t, want, string(v))
		return nil
	}))
}

func assertAbsent(t *testing.T, s kv.Store, key string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(r kv.Reader) error {
		_, ok, err := r.Get(ctx, []byte(key))
		require.NoError(t, err)
		assert.False(t, ok, "key %q should be absent", key)
		return nil
	}))
}
