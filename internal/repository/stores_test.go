package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	pkgcache "StockSense/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *pkgcache.MemoryCache {
	t.Helper()
	c := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestWeightsStoreDefaultsAndClamp(t *testing.T) {
	ctx := context.Background()
	store := NewCacheWeightsStore(newCache(t))

	w, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSourceWeights(), w)

	saved, err := store.Set(ctx, "alice", models.SourceWeights{MLModel: 250, NewsOutlets: 10, Congress: 0, SocialMedia: 100})
	require.NoError(t, err)
	assert.Equal(t, models.SourceWeights{MLModel: 100, NewsOutlets: 10, Congress: 0, SocialMedia: 100}, saved)

	w, err = store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, saved, w)

	// other users are unaffected
	w, err = store.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSourceWeights(), w)

	require.NoError(t, store.Reset(ctx, "alice"))
	w, err = store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSourceWeights(), w)
}

func TestWeightsStoreRejectsNegative(t *testing.T) {
	store := NewCacheWeightsStore(newCache(t))

	_, err := store.Set(context.Background(), "alice", models.SourceWeights{MLModel: -1})
	assert.True(t, errors.Is(err, models.ErrNegativeWeight))
}

func TestRunStoreLock(t *testing.T) {
	ctx := context.Background()
	store := NewCacheRunStore(newCache(t))

	ok, err := store.Acquire(ctx, "AAPL", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(ctx, "AAPL", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Acquire(ctx, "MSFT", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Release(ctx, "AAPL"))
	ok, err = store.Acquire(ctx, "AAPL", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunStoreLatest(t *testing.T) {
	ctx := context.Background()
	store := NewCacheRunStore(newCache(t))

	_, err := store.Latest(ctx, "AAPL")
	assert.True(t, errors.Is(err, drepo.ErrNotFound))

	run := &models.AnalysisRun{ID: "r1", Ticker: "AAPL", Status: models.RunComplete, Result: &models.AnalysisResult{Overall: 42}}
	require.NoError(t, store.SaveLatest(ctx, run))

	got, err := store.Latest(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, 42, got.Result.Overall)

	require.NoError(t, store.ClearLatest(ctx, "AAPL"))
	_, err = store.Latest(ctx, "AAPL")
	assert.True(t, errors.Is(err, drepo.ErrNotFound))
}

func TestRunStoreScans(t *testing.T) {
	ctx := context.Background()
	store := NewCacheRunStore(newCache(t))

	require.NoError(t, store.SaveScan(ctx, &models.AnalysisRun{ID: "s1", Ticker: "AAPL", Status: models.RunRunning}, time.Minute))

	got, err := store.Scan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.RunRunning, got.Status)

	ok, err := store.UpdateScan(ctx, &models.AnalysisRun{ID: "s1", Ticker: "AAPL", Status: models.RunComplete}, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = store.Scan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.RunComplete, got.Status)

	require.NoError(t, store.DeleteScan(ctx, "s1"))
	_, err = store.Scan(ctx, "s1")
	assert.True(t, errors.Is(err, drepo.ErrNotFound))

	ok, err = store.UpdateScan(ctx, &models.AnalysisRun{ID: "s1", Status: models.RunComplete}, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = store.Scan(ctx, "s1")
	assert.True(t, errors.Is(err, drepo.ErrNotFound))
}

func TestMemoryHistory(t *testing.T) {
	ctx := context.Background()
	h := NewMemoryHistory(3)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Insert(ctx, &models.AnalysisEvent{RunID: string(rune('a' + i)), Ticker: "AAPL", Timestamp: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, h.Insert(ctx, &models.AnalysisEvent{RunID: "z", Ticker: "MSFT", Timestamp: base}))

	got, err := h.Recent(ctx, "AAPL", time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"e", "d", "c"}, []string{got[0].RunID, got[1].RunID, got[2].RunID})

	got, err = h.Recent(ctx, "AAPL", base.Add(4*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = h.Recent(ctx, "AAPL", time.Time{}, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestHistoryPublisher(t *testing.T) {
	ctx := context.Background()
	h := NewMemoryHistory(0)
	pub := NewHistoryPublisher(h)

	require.NoError(t, pub.PublishAnalysis(ctx, &models.AnalysisEvent{RunID: "r", Ticker: "AAPL", Timestamp: time.Now()}))
	got, err := h.Recent(ctx, "AAPL", time.Time{}, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, pub.Close())
}

func TestHistorySchema(t *testing.T) {
	stmts := HistorySchema("stocksense")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "stocksense.analysis_history")
}
