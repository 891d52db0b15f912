package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("key not found")

// Store is a string-keyed JSON blob store shared by every ledger. Each ledger
// owns a disjoint key namespace, so backends never see contention on one key
// from two owners.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Purger is implemented by backends that can drop blobs untouched for longer
// than a retention window.
type Purger interface {
	PurgeStale(ctx context.Context, olderThan time.Duration) (int64, error)
}
