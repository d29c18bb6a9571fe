// Package keyspace derives the storage keys for every record kind.
//
// A Key is the triple (tag, kind, id). Its byte form is the canonical JSON
// array [tag, kind, id], which is injective: two keys encode to the same
// bytes only if all three parts are equal. Keys with different tags or kinds
// therefore never alias, whatever the id.
//
// Derivation is pure and total.
package keyspace

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/roach88/kvledger/internal/ir"
)

// Namespace tags. Each registry owns one tag.
const (
	TagInspection = "PINSPCT"
	TagSession    = "SESSION"
	TagBalance    = "BALANCE"
)

// Record kinds within a tag.
const (
	KindStamp   = "stamp"
	KindCount   = "count"
	KindRecord  = "record"
	KindAccount = "account"
)

// Key addresses one entry in the KeyedStore.
type Key struct {
	Tag  string
	Kind string
	// ID is the record id in canonical text form. Empty for singletons.
	// It must be valid UTF-8.
	ID string
}

// StampKey addresses the inspection stamp with the given id.
func StampKey(stampID uint64) Key {
	return Key{Tag: TagInspection, Kind: KindStamp, ID: strconv.FormatUint(stampID, 10)}
}

// SessionCount addresses the singleton session counter.
func SessionCount() Key {
	return Key{Tag: TagSession, Kind: KindCount}
}

// SessionRecord addresses the session with the given id.
func SessionRecord(id uint64) Key {
	return Key{Tag: TagSession, Kind: KindRecord, ID: strconv.FormatUint(id, 10)}
}

// BalanceKey addresses the accrued balance of identity. The id is the hex
// form of the identity's exact bytes, so distinct identities never share a
// balance even when they are not valid UTF-8 or differ only in normalization.
func BalanceKey(identity string) Key {
	return Key{Tag: TagBalance, Kind: KindAccount, ID: hex.EncodeToString([]byte(identity))}
}

// Bytes returns the canonical encoding of k.
func (k Key) Bytes() []byte {
	b, err := ir.MarshalCanonical(ir.Array{ir.String(k.Tag), ir.String(k.Kind), ir.String(k.ID)})
	if err != nil {
		// Tags and kinds are ASCII and every id is decimal or hex.
		panic(fmt.Sprintf("keyspace: encode %v: %v", k, err))
	}
	return b
}

// String returns the canonical encoding of k as text.
func (k Key) String() string {
	return string(k.Bytes())
}

// Parse decodes a key produced by Bytes.
func Parse(b []byte) (Key, error) {
	v, err := ir.Decode(b)
	if err != nil {
		return Key{}, fmt.Errorf("parse key: %w", err)
	}
	arr, ok := v.(ir.Array)
	if !ok || len(arr) != 3 {
		return Key{}, fmt.Errorf("parse key: expected 3-element array, got %s", b)
	}
	parts := make([]string, 3)
	for i, e := range arr {
		s, ok := e.(ir.String)
		if !ok {
			return Key{}, fmt.Errorf("parse key: element %d is %T, want string", i, e)
		}
		parts[i] = string(s)
	}
	return Key{Tag: parts[0], Kind: parts[1], ID: parts[2]}, nil
}
