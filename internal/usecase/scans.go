package usecase

import (
	"context"
	"fmt"
	"time"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	applogger "StockSense/pkg/logger"
	"StockSense/pkg/queue"
	"StockSense/pkg/util"

	"github.com/google/uuid"
)

// ScanJobType is the queue message type of an asynchronous analysis.
const ScanJobType = "analysis.scan"

// ScanPayload is the queued message body.
type ScanPayload struct {
	ScanID string `json:"scan_id"`
	Ticker string `json:"ticker"`
	UserID string `json:"user_id"`
}

// ScanUseCase starts analyses in the background and tracks them by scan id.
type ScanUseCase struct {
	store drepo.ScanStore
	queue queue.QueueService
	ttl   time.Duration
}

// NewScanUseCase creates the scan use case. ttl bounds how long scan state is kept.
func NewScanUseCase(store drepo.ScanStore, q queue.QueueService, ttl time.Duration) *ScanUseCase {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ScanUseCase{store: store, queue: q, ttl: ttl}
}

// Start records a running scan and enqueues it.
func (u *ScanUseCase) Start(ctx context.Context, ticker, userID string) (*models.AnalysisRun, error) {
	ticker = util.NormalizeTicker(ticker)
	if ticker == "" || len(ticker) > maxTickerLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}

	scan := &models.AnalysisRun{
		ID:             uuid.NewString(),
		Ticker:         ticker,
		UserID:         userID,
		Status:         models.RunRunning,
		CompletedSteps: []int{},
		StartedAt:      time.Now().UTC(),
	}
	if err := u.store.SaveScan(ctx, scan, u.ttl); err != nil {
		return nil, fmt.Errorf("save scan: %w", err)
	}

	payload := ScanPayload{ScanID: scan.ID, Ticker: ticker, UserID: userID}
	if err := u.queue.PublishMessage(ctx, ScanJobType, payload); err != nil {
		_ = u.store.DeleteScan(ctx, scan.ID)
		return nil, fmt.Errorf("enqueue scan: %w", err)
	}
	return scan, nil
}

// Status returns the scan or repository.ErrNotFound.
func (u *ScanUseCase) Status(ctx context.Context, id string) (*models.AnalysisRun, error) {
	return u.store.Scan(ctx, id)
}

// Reset forgets a scan, returning it to idle. Unknown ids are repository.ErrNotFound.
func (u *ScanUseCase) Reset(ctx context.Context, id string) error {
	if _, err := u.store.Scan(ctx, id); err != nil {
		return err
	}
	return u.store.DeleteScan(ctx, id)
}

// ScanJob executes queued scans.
type ScanJob struct {
	analysis *AnalysisUseCase
	store    drepo.ScanStore
	ttl      time.Duration
	logger   *applogger.Logger
}

// NewScanJob creates the queue job.
func NewScanJob(analysis *AnalysisUseCase, store drepo.ScanStore, ttl time.Duration) *ScanJob {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ScanJob{analysis: analysis, store: store, ttl: ttl}
}

// SetLogger injects logger.
func (j *ScanJob) SetLogger(l *applogger.Logger) { j.logger = l }

func (j *ScanJob) Name() string { return "analysis-scan" }

func (j *ScanJob) Type() string { return ScanJobType }

// Handle runs the analysis. A failed analysis is a terminal scan state, not a
// job error, so it is never retried by the queue. A scan reset while running
// is not recreated.
func (j *ScanJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ScanPayload](payload)
	if err != nil {
		return fmt.Errorf("scan payload: %w", err)
	}

	onEvent := func(ev models.ProgressEvent) {
		scan, err := j.store.Scan(ctx, p.ScanID)
		if err != nil {
			return
		}
		scan.Status = ev.Status
		scan.CurrentStep = ev.Step
		scan.CompletedSteps = ev.CompletedSteps
		_, _ = j.store.UpdateScan(ctx, scan, j.ttl)
	}

	run, runErr := j.analysis.RunWithID(ctx, p.ScanID, p.Ticker, p.UserID, onEvent)
	if run == nil {
		// Never started (lock held or bad input): record the rejection.
		now := time.Now().UTC()
		run = &models.AnalysisRun{
			ID:             p.ScanID,
			Ticker:         p.Ticker,
			UserID:         p.UserID,
			Status:         models.RunFailed,
			CompletedSteps: []int{},
			Error:          runErr.Error(),
			StartedAt:      now,
			FinishedAt:     &now,
		}
	}

	saved, err := j.store.UpdateScan(ctx, run, j.ttl)
	if err != nil {
		return fmt.Errorf("save scan %s: %w", p.ScanID, err)
	}
	if !saved {
		return nil
	}

	if runErr != nil && j.logger != nil {
		j.logger.Warn("scan failed", applogger.String("scan_id", p.ScanID), applogger.Error(runErr))
	}
	return nil
}

// OnDeadLetter marks a scan failed once the queue gives up on it, so clients
// polling the scan do not see it running until the state expires.
func (j *ScanJob) OnDeadLetter(ctx context.Context, payload interface{}, cause error) {
	p, err := queue.ParsePayload[ScanPayload](payload)
	if err != nil {
		return
	}
	scan, err := j.store.Scan(ctx, p.ScanID)
	if err != nil || scan.Status != models.RunRunning {
		return
	}

	now := time.Now().UTC()
	scan.Status = models.RunFailed
	scan.Error = cause.Error()
	scan.FinishedAt = &now
	if _, err := j.store.UpdateScan(ctx, scan, j.ttl); err != nil && j.logger != nil {
		j.logger.Error("mark dead scan failed", applogger.String("scan_id", p.ScanID), applogger.Error(err))
	}
}

var (
	_ queue.Job               = (*ScanJob)(nil)
	_ queue.DeadLetterHandler = (*ScanJob)(nil)
)
