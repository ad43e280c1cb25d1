package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	schema = `
CREATE TABLE IF NOT EXISTS local_values (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL
);`

	selectValue = `SELECT value FROM local_values WHERE key = ?`

	upsertValue = `
INSERT INTO local_values (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)

// OpenSQLite opens the SQLite database at dsn and ensures the local store
// schema exists.
func OpenSQLite(ctx context.Context, logger *zap.Logger, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite; error: %w", err)
	}
	// SQLite permits a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite; error: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create local store schema; error: %w", err)
	}

	return &SQLite{logger: logger, db: db, timeout: 5 * time.Second}, nil
}

// SQLite is a file backed IStore.
type SQLite struct {
	logger  *zap.Logger
	db      *sql.DB
	timeout time.Duration
}

// Get retrieves the value of key. Read failures are logged and reported as
// a missing key.
func (s SQLite) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var val []byte
	err := s.db.QueryRowContext(ctx, selectValue, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.logger.Error("read local value", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return val, true
}

// Set replaces the value of key.
func (s SQLite) Set(key string, val []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, upsertValue, key, val, time.Now()); err != nil {
		return fmt.Errorf("write local value; key: %s, error: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s SQLite) Close() error {
	return s.db.Close()
}
