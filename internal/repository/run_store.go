package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	pkgcache "StockSense/pkg/cache"
)

const (
	lockKeyPrefix   = "analysis:lock"
	latestKeyPrefix = "analysis:latest"
	scanKeyPrefix   = "analysis:scan"
)

// CacheRunStore implements RunStore and ScanStore on top of the cache.
// The per-ticker lock is a TryLock key that expires on its own if a process dies mid-run.
type CacheRunStore struct {
	cache pkgcache.Service
}

// NewCacheRunStore creates the run store.
func NewCacheRunStore(cache pkgcache.Service) *CacheRunStore {
	return &CacheRunStore{cache: cache}
}

func (s *CacheRunStore) Acquire(ctx context.Context, ticker string, ttl time.Duration) (bool, error) {
	return s.cache.TryLock(ctx, pkgcache.Key(lockKeyPrefix, ticker), ttl)
}

func (s *CacheRunStore) Release(ctx context.Context, ticker string) error {
	err := s.cache.Unlock(ctx, pkgcache.Key(lockKeyPrefix, ticker))
	if errors.Is(err, pkgcache.ErrLockNotHeld) {
		return fmt.Errorf("run lock for %s expired before release: %w", ticker, err)
	}
	return err
}

func (s *CacheRunStore) SaveLatest(ctx context.Context, run *models.AnalysisRun) error {
	if err := s.cache.Set(ctx, pkgcache.Key(latestKeyPrefix, run.Ticker), run, 0); err != nil {
		return fmt.Errorf("save latest %s: %w", run.Ticker, err)
	}
	return nil
}

func (s *CacheRunStore) Latest(ctx context.Context, ticker string) (*models.AnalysisRun, error) {
	return s.load(ctx, pkgcache.Key(latestKeyPrefix, ticker))
}

func (s *CacheRunStore) ClearLatest(ctx context.Context, ticker string) error {
	return s.cache.Delete(ctx, pkgcache.Key(latestKeyPrefix, ticker))
}

func (s *CacheRunStore) SaveScan(ctx context.Context, run *models.AnalysisRun, ttl time.Duration) error {
	if err := s.cache.Set(ctx, pkgcache.Key(scanKeyPrefix, run.ID), run, ttl); err != nil {
		return fmt.Errorf("save scan %s: %w", run.ID, err)
	}
	return nil
}

func (s *CacheRunStore) UpdateScan(ctx context.Context, run *models.AnalysisRun, ttl time.Duration) (bool, error) {
	ok, err := s.cache.Replace(ctx, pkgcache.Key(scanKeyPrefix, run.ID), run, ttl)
	if err != nil {
		return false, fmt.Errorf("update scan %s: %w", run.ID, err)
	}
	return ok, nil
}

func (s *CacheRunStore) Scan(ctx context.Context, id string) (*models.AnalysisRun, error) {
	return s.load(ctx, pkgcache.Key(scanKeyPrefix, id))
}

func (s *CacheRunStore) DeleteScan(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, pkgcache.Key(scanKeyPrefix, id))
}

func (s *CacheRunStore) load(ctx context.Context, key string) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	err := s.cache.Get(ctx, key, &run)
	if errors.Is(err, pkgcache.ErrCacheMiss) {
		return nil, drepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return &run, nil
}

var (
	_ drepo.RunStore  = (*CacheRunStore)(nil)
	_ drepo.ScanStore = (*CacheRunStore)(nil)
)
