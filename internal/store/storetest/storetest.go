// Package storetest opens each kv.Store backend for tests that must hold on
// all of them. PostgreSQL is included only when KVLEDGER_TEST_PG_DSN is set.
package storetest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/roach88/kvledger/internal/kv"
	"github.com/roach88/kvledger/internal/store"
	"github.com/roach88/kvledger/internal/store/postgres"
)

// Backend names a store constructor.
type Backend struct {
	Name string
	Open func(t *testing.T) kv.Store
}

// Backends returns memory, SQLite and PostgreSQL backends. Each Open returns
// an empty store that is closed when the test ends.
func Backends() []Backend {
	return []Backend{
		{Name: "memory", Open: func(*testing.T) kv.Store { return kv.NewMemory() }},
		{Name: "sqlite", Open: OpenSQLite},
		{Name: "postgres", Open: OpenPostgres},
	}
}

// OpenSQLite opens a file-backed SQLite store in a temp dir.
func OpenSQLite(t *testing.T) kv.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// OpenPostgres connects to KVLEDGER_TEST_PG_DSN and empties the entry table,
// or skips the test when the variable is unset.
func OpenPostgres(t *testing.T) kv.Store {
	t.Helper()
	dsn := os.Getenv("KVLEDGER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("KVLEDGER_TEST_PG_DSN not set")
	}

	s, err := postgres.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	db, err := gorm.Open(gormpg.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Exec("DELETE FROM "+(postgres.Entry{}).TableName()).Error)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return s
}

// Snapshot returns the raw bytes stored under each key, keyed by its text
// form. Absent keys map to the empty string.
func Snapshot(t *testing.T, st kv.Store, keys ...[]byte) map[string]string {
	t.Helper()
	ctx := context.Background()
	out := make(map[string]string, len(keys))
	err := st.View(ctx, func(rd kv.Reader) error {
		for _, k := range keys {
			v, _, err := rd.Get(ctx, k)
			if err != nil {
				return err
			}
			out[string(k)] = string(v)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}
