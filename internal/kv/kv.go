// Package kv defines the KeyedStore the registries persist through.
//
// A Store hands out transactions. Every registry operation runs inside
// exactly one Update (or View for lookups), which gives it the
// all-or-nothing boundary the lifecycle rules rely on: when the callback
// returns an error, none of its writes are visible afterwards.
//
// Keys and values are opaque bytes. Backends store a digest alongside each
// value and verify it on read (see Verify).
package kv

import (
	"context"

	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/ir"
)

// Reader reads entries.
type Reader interface {
	// Get returns the value stored at key. ok is false when no entry exists.
	Get(ctx context.Context, key []byte) (value []byte, ok bool, err error)
}

// Txn reads and writes entries inside one transaction. Reads observe the
// transaction's own earlier writes.
type Txn interface {
	Reader

	// Set stores value at key, replacing any previous entry.
	Set(ctx context.Context, key, value []byte) error
}

// Store is a transactional key-value map.
type Store interface {
	// View runs fn against a read-only snapshot.
	View(ctx context.Context, fn func(Reader) error) error

	// Update runs fn in a read-write transaction. The transaction commits
	// when fn returns nil and rolls back otherwise, including on panic.
	Update(ctx context.Context, fn func(Txn) error) error

	// Close releases the store's resources.
	Close() error
}

// Digest computes the integrity digest stored next to value.
func Digest(key, value []byte) string {
	return ir.EntryDigest(key, value)
}

// Verify checks a stored digest, returning a CORRUPT fault on mismatch.
func Verify(key, value []byte, digest string) error {
	if Digest(key, value) != digest {
		return fault.Corrupt("entry digest mismatch").WithKey(string(key))
	}
	return nil
}
