package repository

import (
	"context"
	"fmt"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/storage"
)

// ScoreRepository persists the per-device ScoreLedger blob.
type ScoreRepository struct {
	store storage.Store
}

func NewScoreRepository(store storage.Store) *ScoreRepository {
	return &ScoreRepository{store: store}
}

func scoreKey(deviceID string) string {
	return fmt.Sprintf("device:%s:score_data", deviceID)
}

// Load retrieves the score blob. Returns storage.ErrNotFound for a device
// that has never persisted score state.
func (r *ScoreRepository) Load(ctx context.Context, deviceID string) (*entities.ScoreData, error) {
	var data entities.ScoreData
	if err := getJSON(ctx, r.store, scoreKey(deviceID), &data); err != nil {
		return nil, err
	}

	if data.Achievements == nil {
		data.Achievements = []string{}
	}

	return &data, nil
}

// Save stores the score blob, replacing any previous state.
func (r *ScoreRepository) Save(ctx context.Context, deviceID string, data *entities.ScoreData) error {
	return putJSON(ctx, r.store, scoreKey(deviceID), data)
}

// Delete removes the score blob.
func (r *ScoreRepository) Delete(ctx context.Context, deviceID string) error {
	return r.store.Remove(ctx, scoreKey(deviceID))
}
