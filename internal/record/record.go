// Package record moves typed records between the registries and a KeyedStore.
// Records travel as canonical JSON objects addressed by keyspace keys.
package record

import (
	"context"

	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/ir"
	"github.com/roach88/kvledger/internal/keyspace"
	"github.com/roach88/kvledger/internal/kv"
)

// Load reads the object stored at key. ok is false when no entry exists.
// Undecodable bytes are a CORRUPT fault.
func Load(ctx context.Context, r kv.Reader, key keyspace.Key) (ir.Object, bool, error) {
	k := key.Bytes()
	raw, ok, err := r.Get(ctx, k)
	if err != nil || !ok {
		return nil, false, err
	}
	obj, err := ir.DecodeObject(raw)
	if err != nil {
		return nil, false, fault.Corrupt("decode record: %v", err).WithKey(string(k))
	}
	return obj, true, nil
}

// Save writes obj at key in canonical form.
func Save(ctx context.Context, tx kv.Txn, key keyspace.Key, obj ir.Object) error {
	raw, err := ir.MarshalCanonical(obj)
	if err != nil {
		return err
	}
	return tx.Set(ctx, key.Bytes(), raw)
}

// Decode runs fn over a loaded object, turning field errors into a CORRUPT
// fault tagged with key.
func Decode[T any](key keyspace.Key, obj ir.Object, fn func(ir.Object) (T, error)) (T, error) {
	v, err := fn(obj)
	if err != nil {
		var zero T
		return zero, fault.Corrupt("decode record: %v", err).WithKey(key.String())
	}
	return v, nil
}
