package usecase

import (
	"context"
	"fmt"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
)

// PreferenceUseCase manages per-user source weights.
type PreferenceUseCase struct {
	store drepo.WeightsStore
}

func NewPreferenceUseCase(store drepo.WeightsStore) *PreferenceUseCase {
	return &PreferenceUseCase{store: store}
}

// Weights returns the user's weights, or the defaults if none are stored.
func (u *PreferenceUseCase) Weights(ctx context.Context, userID string) (models.SourceWeights, error) {
	return u.store.Get(ctx, userID)
}

// Update applies a partial change on top of the current weights. Values above
// the maximum are clamped; negative values are rejected.
func (u *PreferenceUseCase) Update(ctx context.Context, userID string, req *models.UpdateWeightsRequest) (models.SourceWeights, error) {
	current, err := u.store.Get(ctx, userID)
	if err != nil {
		return models.SourceWeights{}, fmt.Errorf("load weights: %w", err)
	}
	next := req.Apply(current)
	if err := next.Validate(); err != nil {
		return models.SourceWeights{}, err
	}
	return u.store.Set(ctx, userID, next)
}

// Reset restores the defaults and returns them.
func (u *PreferenceUseCase) Reset(ctx context.Context, userID string) (models.SourceWeights, error) {
	if err := u.store.Reset(ctx, userID); err != nil {
		return models.SourceWeights{}, err
	}
	return models.DefaultSourceWeights(), nil
}
