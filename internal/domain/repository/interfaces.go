package repository

import (
	"context"
	"errors"
	"time"

	"StockSense/internal/domain/models"
)

// ErrNotFound is returned when a stored record does not exist.
var ErrNotFound = errors.New("not found")

// WeightsStore persists source weights per user.
type WeightsStore interface {
	Get(ctx context.Context, userID string) (models.SourceWeights, error)
	Set(ctx context.Context, userID string, w models.SourceWeights) (models.SourceWeights, error)
	Reset(ctx context.Context, userID string) error
}

// RunStore guards concurrent runs per ticker and keeps the latest result.
type RunStore interface {
	Acquire(ctx context.Context, ticker string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, ticker string) error
	SaveLatest(ctx context.Context, run *models.AnalysisRun) error
	Latest(ctx context.Context, ticker string) (*models.AnalysisRun, error)
	ClearLatest(ctx context.Context, ticker string) error
}

// ScanStore keeps the state of asynchronous runs addressed by id.
type ScanStore interface {
	SaveScan(ctx context.Context, run *models.AnalysisRun, ttl time.Duration) error
	// UpdateScan overwrites an existing scan and reports false if it was deleted.
	UpdateScan(ctx context.Context, run *models.AnalysisRun, ttl time.Duration) (bool, error)
	Scan(ctx context.Context, id string) (*models.AnalysisRun, error)
	DeleteScan(ctx context.Context, id string) error
}

type EventPublisher interface {
	PublishAnalysis(ctx context.Context, ev *models.AnalysisEvent) error
	Close() error
}

type HistoryStore interface {
	Insert(ctx context.Context, ev *models.AnalysisEvent) error
	Recent(ctx context.Context, ticker string, since time.Time, limit int) ([]models.AnalysisEvent, error)
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordRun(status string)
	RecordSourceError(source string)
	RecordOverall(ticker string, overall int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
