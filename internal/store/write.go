package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/kvledger/internal/kv"
)

// txn adapts a sql.Tx to kv.Txn.
type txn struct {
	tx *sql.Tx
}

// Set upserts the entry at key. The digest is recomputed on every write so
// a row is never left with a stale digest.
func (t *txn) Set(ctx context.Context, key, value []byte) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, digest)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, digest = excluded.digest
	`,
		key,
		value,
		kv.Digest(key, value),
	)
	if err != nil {
		return fmt.Errorf("set entry: %w", err)
	}
	return nil
}
