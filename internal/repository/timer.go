package repository

import (
	"context"
	"fmt"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/storage"
)

// TimerRepository persists the per-device TimeLedger blob.
type TimerRepository struct {
	store storage.Store
}

func NewTimerRepository(store storage.Store) *TimerRepository {
	return &TimerRepository{store: store}
}

func timerKey(deviceID string) string {
	return fmt.Sprintf("device:%s:timer_data", deviceID)
}

// Load retrieves the timer blob. Returns storage.ErrNotFound for a device
// that has never persisted timer state.
func (r *TimerRepository) Load(ctx context.Context, deviceID string) (*entities.TimerData, error) {
	var data entities.TimerData
	if err := getJSON(ctx, r.store, timerKey(deviceID), &data); err != nil {
		return nil, err
	}

	return &data, nil
}

// Save stores the timer blob, replacing any previous state.
func (r *TimerRepository) Save(ctx context.Context, deviceID string, data *entities.TimerData) error {
	return putJSON(ctx, r.store, timerKey(deviceID), data)
}

// Delete removes the timer blob.
func (r *TimerRepository) Delete(ctx context.Context, deviceID string) error {
	return r.store.Remove(ctx, timerKey(deviceID))
}
