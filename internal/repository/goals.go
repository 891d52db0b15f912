package repository

import (
	"context"
	"fmt"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/storage"
)

// GoalsRepository persists the per-device daily goals blob.
type GoalsRepository struct {
	store storage.Store
}

func NewGoalsRepository(store storage.Store) *GoalsRepository {
	return &GoalsRepository{store: store}
}

func goalsKey(deviceID string) string {
	return fmt.Sprintf("device:%s:daily_goals", deviceID)
}

// Load retrieves the goals blob. Returns storage.ErrNotFound for a device
// that has never persisted goals.
func (r *GoalsRepository) Load(ctx context.Context, deviceID string) (*entities.DailyGoalsData, error) {
	var data entities.DailyGoalsData
	if err := getJSON(ctx, r.store, goalsKey(deviceID), &data); err != nil {
		return nil, err
	}

	return &data, nil
}

// Save stores the goals blob, replacing any previous state.
func (r *GoalsRepository) Save(ctx context.Context, deviceID string, data *entities.DailyGoalsData) error {
	return putJSON(ctx, r.store, goalsKey(deviceID), data)
}

// Delete removes the goals blob.
func (r *GoalsRepository) Delete(ctx context.Context, deviceID string) error {
	return r.store.Remove(ctx, goalsKey(deviceID))
}
