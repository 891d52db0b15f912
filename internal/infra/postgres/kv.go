package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brainbites/brainbites-server/internal/storage"
)

// KV is the PostgreSQL-backed blob store. One row per key; updated_at is
// refreshed on every write so stale devices can be purged.
type KV struct {
	db *pgxpool.Pool
}

// NewKV creates the blob table if needed and returns the store.
func NewKV(ctx context.Context, db *pgxpool.Pool) (*KV, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS kv_blobs (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	return &KV{db: db}, nil
}

// Get retrieves the blob stored under key.
func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_blobs WHERE key = $1`

	var value []byte
	err := s.db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
		VALUES ($1, $2, now())
		ON CONFLICT (key)
		DO UPDATE SET value = excluded.value, updated_at = now()
	`

	_, err := s.db.Exec(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}

	return nil
}

// Remove deletes the blob stored under key.
func (s *KV) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM kv_blobs WHERE key = $1`

	_, err := s.db.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	return nil
}

// PurgeStale drops blobs that have not been written for longer than olderThan.
func (s *KV) PurgeStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM kv_blobs WHERE updated_at < $1`

	tag, err := s.db.Exec(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge stale: %w", err)
	}

	return tag.RowsAffected(), nil
}
