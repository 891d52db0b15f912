package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brainbites/brainbites-server/internal/storage"
)

// getJSON loads and unmarshals the blob stored under key into out.
// storage.ErrNotFound passes through untouched so callers can fall back to
// default state.
func getJSON(ctx context.Context, store storage.Store, key string, out any) error {
	data, err := store.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}

	return nil
}

// putJSON marshals in and stores it under key.
func putJSON(ctx context.Context, store storage.Store, key string, in any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	if err := store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}
