package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	"StockSense/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanLifecycle(t *testing.T) {
	f := newFixture(t, AnalysisConfig{})
	q := &fakeQueue{}
	scans := NewScanUseCase(f.runs, q, time.Minute)
	job := NewScanJob(f.uc, f.runs, time.Minute)
	ctx := context.Background()

	scan, err := scans.Start(ctx, "nvda", "alice")
	require.NoError(t, err)
	assert.Equal(t, "NVDA", scan.Ticker)
	assert.Equal(t, models.RunRunning, scan.Status)
	require.Len(t, q.messages, 1)

	payload, ok := q.messages[0].(ScanPayload)
	require.True(t, ok)
	assert.Equal(t, scan.ID, payload.ScanID)

	got, err := scans.Status(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunRunning, got.Status)

	require.NoError(t, job.Handle(ctx, map[string]interface{}{
		"scan_id": payload.ScanID,
		"ticker":  payload.Ticker,
		"user_id": payload.UserID,
	}))

	got, err = scans.Status(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Len(t, got.CompletedSteps, len(models.AnalysisSteps))

	require.NoError(t, scans.Reset(ctx, scan.ID))
	_, err = scans.Status(ctx, scan.ID)
	assert.True(t, errors.Is(err, drepo.ErrNotFound))
}

func TestScanResetUnknown(t *testing.T) {
	f := newFixture(t, AnalysisConfig{})
	scans := NewScanUseCase(f.runs, &fakeQueue{}, time.Minute)

	err := scans.Reset(context.Background(), "missing")
	assert.True(t, errors.Is(err, drepo.ErrNotFound))
}

func TestScanStartEnqueueFailureDropsScan(t *testing.T) {
	f := newFixture(t, AnalysisConfig{})
	q := &fakeQueue{err: errors.New("redis down")}
	scans := NewScanUseCase(f.runs, q, time.Minute)

	scan, err := scans.Start(context.Background(), "AAPL", "alice")
	require.Error(t, err)
	assert.Nil(t, scan)
}

func TestScanJobRecordsFailedRun(t *testing.T) {
	f := newFixture(t, AnalysisConfig{})
	f.ml.err = errors.New("boom")
	scans := NewScanUseCase(f.runs, &fakeQueue{}, time.Minute)
	job := NewScanJob(f.uc, f.runs, time.Minute)
	ctx := context.Background()

	scan, err := scans.Start(ctx, "AAPL", "alice")
	require.NoError(t, err)

	require.NoError(t, job.Handle(ctx, ScanPayload{ScanID: scan.ID, Ticker: "AAPL", UserID: "alice"}))

	got, err := scans.Status(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, got.Status)
	assert.Nil(t, got.Result)
	assert.Contains(t, got.Error, "boom")
}

func TestScanJobRecordsRejectedRun(t *testing.T) {
	f := newFixture(t, AnalysisConfig{})
	scans := NewScanUseCase(f.runs, &fakeQueue{}, time.Minute)
	job := NewScanJob(f.uc, f.runs, time.Minute)
	ctx := context.Background()

	ok, err := f.runs.Acquire(ctx, "AAPL", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	scan, err := scans.Start(ctx, "AAPL", "alice")
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, ScanPayload{ScanID: scan.ID, Ticker: "AAPL", UserID: "alice"}))

	got, err := scans.Status(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, got.Status)
	assert.Contains(t, got.Error, ErrRunInProgress.Error())
}

func TestScanJobDoesNotRecreateResetScan(t *testing.T) {
	f := newFixture(t, AnalysisConfig{})
	job := NewScanJob(f.uc, f.runs, time.Minute)

	require.NoError(t, job.Handle(context.Background(), ScanPayload{ScanID: "gone", Ticker: "AAPL"}))

	_, err := f.runs.Scan(context.Background(), "gone")
	assert.True(t, errors.Is(err, drepo.ErrNotFound))
}

// resetOnFirstUpdate deletes the scan right before the job's first write,
// as a DELETE /api/scans/:id racing the worker would.
type resetOnFirstUpdate struct {
	*repository.CacheRunStore
	done bool
}

func (s *resetOnFirstUpdate) UpdateScan(ctx context.Context, run *models.AnalysisRun, ttl time.Duration) (bool, error) {
	if !s.done {
		s.done = true
		if err := s.DeleteScan(ctx, run.ID); err != nil {
			return false, err
		}
	}
	return s.CacheRunStore.UpdateScan(ctx, run, ttl)
}

func TestScanJobDoesNotRecreateScanResetMidRun(t *testing.T) {
	f := newFixture(t, AnalysisConfig{})
	store := &resetOnFirstUpdate{CacheRunStore: f.runs}
	q := &fakeQueue{}
	scans := NewScanUseCase(store, q, time.Minute)
	job := NewScanJob(f.uc, store, time.Minute)
	ctx := context.Background()

	scan, err := scans.Start(ctx, "AAPL", "alice")
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, q.messages[0]))

	assert.True(t, store.done)
	_, err = scans.Status(ctx, scan.ID)
	assert.True(t, errors.Is(err, drepo.ErrNotFound))
}

func TestScanJobRejectsBadPayload(t *testing.T) {
	f := newFixture(t, AnalysisConfig{})
	job := NewScanJob(f.uc, f.runs, time.Minute)

	assert.Error(t, job.Handle(context.Background(), 42))
}

func TestScanJobDeadLetterMarksScanFailed(t *testing.T) {
	f := newFixture(t, AnalysisConfig{})
	q := &fakeQueue{}
	scans := NewScanUseCase(f.runs, q, time.Minute)
	job := NewScanJob(f.uc, f.runs, time.Minute)
	ctx := context.Background()

	scan, err := scans.Start(ctx, "AAPL", "alice")
	require.NoError(t, err)

	raw, err := json.Marshal(q.messages[0])
	require.NoError(t, err)
	job.OnDeadLetter(ctx, json.RawMessage(raw), errors.New("save scan: redis down"))

	got, err := scans.Status(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, got.Status)
	assert.Equal(t, "save scan: redis down", got.Error)
	assert.NotNil(t, got.FinishedAt)
}
