package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kvledger/internal/kv"
)

// Get returns the entry at key, verifying its digest.
// Inside an Update it observes the transaction's own writes.
func (t *txn) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var (
		value  []byte
		digest string
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT value, digest FROM kv_entries WHERE key = ?
	`, key).Scan(&value, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get entry: %w", err)
	}

	if err := kv.Verify(key, value, digest); err != nil {
		return nil, false, err
	}
	return value, true, nil
}
