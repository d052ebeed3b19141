package repository

import (
	"context"
	"errors"
	"fmt"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	pkgcache "StockSense/pkg/cache"
)

const weightsKeyPrefix = "prefs:weights"

// CacheWeightsStore keeps source weights per user in the cache without expiry.
type CacheWeightsStore struct {
	cache pkgcache.Service
}

// NewCacheWeightsStore creates the weights store.
func NewCacheWeightsStore(cache pkgcache.Service) *CacheWeightsStore {
	return &CacheWeightsStore{cache: cache}
}

func weightsKey(userID string) string {
	return pkgcache.Key(weightsKeyPrefix, userID)
}

// Get returns stored weights or the defaults when the user has none.
func (s *CacheWeightsStore) Get(ctx context.Context, userID string) (models.SourceWeights, error) {
	var w models.SourceWeights
	err := s.cache.Get(ctx, weightsKey(userID), &w)
	if errors.Is(err, pkgcache.ErrCacheMiss) {
		return models.DefaultSourceWeights(), nil
	}
	if err != nil {
		return models.SourceWeights{}, fmt.Errorf("get weights %s: %w", userID, err)
	}
	return w, nil
}

// Set rejects negative weights, clamps the rest to the maximum and stores them.
func (s *CacheWeightsStore) Set(ctx context.Context, userID string, w models.SourceWeights) (models.SourceWeights, error) {
	if err := w.Validate(); err != nil {
		return models.SourceWeights{}, err
	}
	w = w.Clamp()
	if err := s.cache.Set(ctx, weightsKey(userID), w, 0); err != nil {
		return models.SourceWeights{}, fmt.Errorf("set weights %s: %w", userID, err)
	}
	return w, nil
}

// Reset drops stored weights so Get falls back to the defaults.
func (s *CacheWeightsStore) Reset(ctx context.Context, userID string) error {
	if err := s.cache.Delete(ctx, weightsKey(userID)); err != nil {
		return fmt.Errorf("reset weights %s: %w", userID, err)
	}
	return nil
}

var _ drepo.WeightsStore = (*CacheWeightsStore)(nil)
