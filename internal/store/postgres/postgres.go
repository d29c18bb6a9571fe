// Package postgres provides a KeyedStore over PostgreSQL using gorm.
//
// Update runs at SERIALIZABLE isolation and locks every row it reads, so
// two invocations touching the same session, counter or balance serialize
// instead of interleaving.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/roach88/kvledger/internal/kv"
)

// Entry is one ledger row.
type Entry struct {
	Key    []byte `gorm:"primaryKey;type:bytea"`
	Value  []byte `gorm:"type:bytea;not null"`
	Digest string `gorm:"type:text;not null"`
}

// TableName pins the table name shared with the SQLite schema.
func (Entry) TableName() string { return "kv_entries" }

// Store is a kv.Store over PostgreSQL.
type Store struct {
	db *gorm.DB
}

var _ kv.Store = (*Store)(nil)

// Open connects to dsn, verifies the connection and migrates the schema.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate postgres schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// View implements kv.Store.
func (s *Store) View(ctx context.Context, fn func(kv.Reader) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txn{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

// Update implements kv.Store.
func (s *Store) Update(ctx context.Context, fn func(kv.Txn) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txn{db: tx, lock: true})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

type txn struct {
	db   *gorm.DB
	lock bool
}

func (t *txn) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	q := t.db.WithContext(ctx)
	if t.lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var e Entry
	err := q.Where("key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get entry: %w", err)
	}

	if err := kv.Verify(key, e.Value, e.Digest); err != nil {
		return nil, false, err
	}
	return e.Value, true, nil
}

func (t *txn) Set(ctx context.Context, key, value []byte) error {
	e := Entry{Key: key, Value: value, Digest: kv.Digest(key, value)}
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "digest"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("set entry: %w", err)
	}
	return nil
}
