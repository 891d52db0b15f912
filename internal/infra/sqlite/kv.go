package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/brainbites/brainbites-server/internal/storage"
)

// KV is a SQLite-backed blob store for single-node and local deployments.
// It uses the pure-Go driver, so no cgo toolchain is required.
type KV struct {
	db *sql.DB
}

// Open opens (or creates) the database file and ensures the blob table exists.
func Open(path string) (*KV, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS kv_blobs (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	return &KV{db: db}, nil
}

// Close closes the underlying database handle.
func (s *KV) Close() error {
	return s.db.Close()
}

// Get retrieves the blob stored under key.
func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_blobs WHERE key = ?`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("get: %w", err)
	}

	return value, nil
}

// Set stores the blob under key, replacing any previous value.
func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_blobs (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}

	return nil
}

// Remove deletes the blob stored under key.
func (s *KV) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM kv_blobs WHERE key = ?`

	_, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	return nil
}

// PurgeStale drops blobs that have not been written for longer than olderThan.
func (s *KV) PurgeStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM kv_blobs WHERE updated_at < ?`

	res, err := s.db.ExecContext(ctx, query, time.Now().Add(-olderThan).Unix())
	if err != nil {
		return 0, fmt.Errorf("purge stale: %w", err)
	}

	return res.RowsAffected()
}
