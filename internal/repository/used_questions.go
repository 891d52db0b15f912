package repository

import (
	"context"
	"fmt"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/storage"
)

// UsedQuestionsRepository persists the per-device set of issued question ids.
type UsedQuestionsRepository struct {
	store storage.Store
}

func NewUsedQuestionsRepository(store storage.Store) *UsedQuestionsRepository {
	return &UsedQuestionsRepository{store: store}
}

func usedKey(deviceID string) string {
	return fmt.Sprintf("device:%s:used_questions", deviceID)
}

// Load retrieves the used-id record. Returns storage.ErrNotFound for a device
// with no record.
func (r *UsedQuestionsRepository) Load(ctx context.Context, deviceID string) (*entities.UsedQuestions, error) {
	var data entities.UsedQuestions
	if err := getJSON(ctx, r.store, usedKey(deviceID), &data); err != nil {
		return nil, err
	}

	return &data, nil
}

// Save stores the used-id record, replacing any previous state.
func (r *UsedQuestionsRepository) Save(ctx context.Context, deviceID string, data *entities.UsedQuestions) error {
	return putJSON(ctx, r.store, usedKey(deviceID), data)
}

// Delete removes the used-id record entirely.
func (r *UsedQuestionsRepository) Delete(ctx context.Context, deviceID string) error {
	return r.store.Remove(ctx, usedKey(deviceID))
}
