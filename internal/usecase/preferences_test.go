package usecase

import (
	"context"
	"errors"
	"testing"

	"StockSense/internal/domain/models"
	"StockSense/internal/repository"
	pkgcache "StockSense/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func newPreferences(t *testing.T) *PreferenceUseCase {
	t.Helper()
	cache := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = cache.Close() })
	return NewPreferenceUseCase(repository.NewCacheWeightsStore(cache))
}

func TestPreferencesDefaults(t *testing.T) {
	prefs := newPreferences(t)

	w, err := prefs.Weights(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSourceWeights(), w)
}

func TestPreferencesPartialUpdateAndClamp(t *testing.T) {
	prefs := newPreferences(t)
	ctx := context.Background()

	w, err := prefs.Update(ctx, "alice", &models.UpdateWeightsRequest{MLModel: intPtr(60), Congress: intPtr(250)})
	require.NoError(t, err)
	assert.Equal(t, models.SourceWeights{MLModel: 60, NewsOutlets: 25, Congress: 100, SocialMedia: 25}, w)

	stored, err := prefs.Weights(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, w, stored)

	other, err := prefs.Weights(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSourceWeights(), other)
}

func TestPreferencesRejectNegative(t *testing.T) {
	prefs := newPreferences(t)
	ctx := context.Background()

	_, err := prefs.Update(ctx, "alice", &models.UpdateWeightsRequest{NewsOutlets: intPtr(-1)})
	assert.True(t, errors.Is(err, models.ErrNegativeWeight))

	w, err := prefs.Weights(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSourceWeights(), w)
}

func TestPreferencesReset(t *testing.T) {
	prefs := newPreferences(t)
	ctx := context.Background()

	_, err := prefs.Update(ctx, "alice", &models.UpdateWeightsRequest{SocialMedia: intPtr(0)})
	require.NoError(t, err)

	w, err := prefs.Reset(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSourceWeights(), w)

	w, err = prefs.Weights(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSourceWeights(), w)
}
