package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	domsvc "StockSense/internal/domain/service"
	"StockSense/internal/services/aggregator"
	applogger "StockSense/pkg/logger"
	"StockSense/pkg/util"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrMLSource wraps any failure of the ML recommendation. It fails the whole run.
	ErrMLSource = errors.New("ml source failed")
	// ErrRunInProgress is returned when the ticker already has an active run.
	ErrRunInProgress = errors.New("analysis already running for ticker")
	// ErrInvalidTicker is returned for empty or oversized tickers.
	ErrInvalidTicker = errors.New("invalid ticker")
)

const maxTickerLen = 12

// ProgressFunc receives every state or step change of a run. It is called
// synchronously from the goroutine executing the run.
type ProgressFunc func(models.ProgressEvent)

// Sources are the score providers of one analysis. Only ML is mandatory;
// a nil secondary source scores 0.
type Sources struct {
	ML       domsvc.MLScorer
	Congress domsvc.CongressFeed
	News     domsvc.SentimentScorer
	Social   domsvc.SentimentScorer
}

// AnalysisConfig tunes the analysis use case.
type AnalysisConfig struct {
	Timeout          time.Duration
	LockTTL          time.Duration
	StepDelay        time.Duration
	CongressPageSize int
}

// AnalysisUseCase runs one weighted analysis per call.
type AnalysisUseCase struct {
	src     Sources
	weights drepo.WeightsStore
	runs    drepo.RunStore
	pub     drepo.EventPublisher
	metrics drepo.Metrics
	cfg     AnalysisConfig
	logger  *applogger.Logger
}

// NewAnalysisUseCase creates the use case.
func NewAnalysisUseCase(src Sources, weights drepo.WeightsStore, runs drepo.RunStore, metrics drepo.Metrics, cfg AnalysisConfig) *AnalysisUseCase {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Timeout + 10*time.Second
	}
	if cfg.CongressPageSize <= 0 {
		cfg.CongressPageSize = 20
	}
	return &AnalysisUseCase{src: src, weights: weights, runs: runs, metrics: metrics, cfg: cfg}
}

// SetLogger injects logger.
func (u *AnalysisUseCase) SetLogger(l *applogger.Logger) { u.logger = l }

// SetPublisher enables publishing terminal runs as events.
func (u *AnalysisUseCase) SetPublisher(p drepo.EventPublisher) { u.pub = p }

// Run executes an analysis under a fresh run id.
func (u *AnalysisUseCase) Run(ctx context.Context, ticker, userID string, onEvent ProgressFunc) (*models.AnalysisRun, error) {
	return u.RunWithID(ctx, uuid.NewString(), ticker, userID, onEvent)
}

// RunWithID executes an analysis. On failure the returned run is in the failed
// state alongside the error; it is nil only when the run never started.
func (u *AnalysisUseCase) RunWithID(ctx context.Context, runID, ticker, userID string, onEvent ProgressFunc) (*models.AnalysisRun, error) {
	ticker = util.NormalizeTicker(ticker)
	if ticker == "" || len(ticker) > maxTickerLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}

	acquired, err := u.runs.Acquire(ctx, ticker, u.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !acquired {
		u.metrics.RecordError("run_in_progress")
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, ticker)
	}
	defer u.release(ticker)

	ctx, cancel := context.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()

	start := time.Now()
	run := &models.AnalysisRun{
		ID:             runID,
		Ticker:         ticker,
		UserID:         userID,
		Status:         models.RunRunning,
		CompletedSteps: []int{},
		Weights:        u.loadWeights(ctx, userID),
		StartedAt:      start.UTC(),
	}
	emit := func(title string) {
		if onEvent == nil {
			return
		}
		onEvent(models.ProgressEvent{
			RunID:          run.ID,
			Ticker:         run.Ticker,
			Status:         run.Status,
			Step:           run.CurrentStep,
			Title:          title,
			CompletedSteps: append([]int(nil), run.CompletedSteps...),
			Error:          run.Error,
			Timestamp:      time.Now().UTC(),
		})
	}

	u.info("analysis started", applogger.String("run_id", run.ID), applogger.String("ticker", ticker))

	if err := u.walkSteps(ctx, run, emit); err != nil {
		return u.fail(run, err, emit)
	}

	scores, srcErrs, err := u.collect(ctx, ticker)
	if err != nil {
		return u.fail(run, err, emit)
	}

	result := aggregator.Aggregate(scores.ml, scores.news, scores.congress, scores.social, run.Weights)
	finished := time.Now().UTC()
	run.Result = &result
	run.Verdict = aggregator.ClassifyOverall(result.Overall)
	run.SourceErrors = srcErrs
	run.Status = models.RunComplete
	run.FinishedAt = &finished

	if err := u.runs.SaveLatest(ctx, run); err != nil {
		u.warn("save latest result failed", applogger.String("ticker", ticker), applogger.Error(err))
	}
	u.publish(run)

	u.metrics.RecordRun(string(models.RunComplete))
	u.metrics.RecordOverall(ticker, result.Overall)
	u.metrics.RecordLatency("analysis", time.Since(start).Seconds())
	emit("")

	u.info("analysis complete",
		applogger.String("run_id", run.ID),
		applogger.String("ticker", ticker),
		applogger.Int("overall", result.Overall),
		applogger.String("verdict", run.Verdict),
	)
	return run, nil
}

// Latest returns the last completed run for ticker or repository.ErrNotFound.
func (u *AnalysisUseCase) Latest(ctx context.Context, ticker string) (*models.AnalysisRun, error) {
	ticker = util.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrInvalidTicker
	}
	return u.runs.Latest(ctx, ticker)
}

func (u *AnalysisUseCase) walkSteps(ctx context.Context, run *models.AnalysisRun, emit func(string)) error {
	for _, step := range models.AnalysisSteps {
		run.CurrentStep = step.ID
		emit(step.Title)

		if u.cfg.StepDelay > 0 {
			select {
			case <-time.After(u.cfg.StepDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		run.CompletedSteps = append(run.CompletedSteps, step.ID)
	}
	return nil
}

type sourceScores struct {
	ml, news, congress, social int
}

// collect fetches all four sources concurrently. An ML failure cancels the
// others and is returned; secondary failures score 0 and are reported per source.
func (u *AnalysisUseCase) collect(ctx context.Context, ticker string) (sourceScores, map[models.Source]string, error) {
	var (
		scores  sourceScores
		mu      sync.Mutex
		srcErrs = make(map[models.Source]string)
	)

	g, gctx := errgroup.WithContext(ctx)

	degrade := func(src models.Source, err error) {
		if gctx.Err() != nil {
			return
		}
		mu.Lock()
		srcErrs[src] = err.Error()
		mu.Unlock()
		u.metrics.RecordSourceError(string(src))
		u.warn("source degraded to 0", applogger.String("ticker", ticker), applogger.String("source", string(src)), applogger.Error(err))
	}

	g.Go(func() error {
		if u.src.ML == nil {
			return fmt.Errorf("%w: no ml scorer configured", ErrMLSource)
		}
		score, err := u.src.ML.FetchScore(gctx, ticker)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMLSource, err)
		}
		scores.ml = score
		return nil
	})

	if u.src.Congress != nil {
		g.Go(func() error {
			trades, err := u.src.Congress.Trades(gctx, ticker, 1, u.cfg.CongressPageSize)
			if err != nil {
				degrade(models.SourceCongress, err)
				return nil
			}
			scores.congress = aggregator.AnalyzeCongressActivity(trades)
			return nil
		})
	}

	sentiment := func(src models.Source, scorer domsvc.SentimentScorer, dst *int) {
		if scorer == nil {
			return
		}
		g.Go(func() error {
			score, err := scorer.Score(gctx, ticker)
			if err != nil {
				degrade(src, err)
				return nil
			}
			*dst = aggregator.ClampScore(score)
			return nil
		})
	}
	sentiment(models.SourceNewsOutlets, u.src.News, &scores.news)
	sentiment(models.SourceSocialMedia, u.src.Social, &scores.social)

	if err := g.Wait(); err != nil {
		return sourceScores{}, nil, err
	}
	if len(srcErrs) == 0 {
		srcErrs = nil
	}
	return scores, srcErrs, nil
}

func (u *AnalysisUseCase) fail(run *models.AnalysisRun, err error, emit func(string)) (*models.AnalysisRun, error) {
	finished := time.Now().UTC()
	run.Status = models.RunFailed
	run.Error = err.Error()
	run.Result = nil
	run.Verdict = ""
	run.FinishedAt = &finished

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := u.runs.ClearLatest(ctx, run.Ticker); cerr != nil {
		u.warn("clear latest result failed", applogger.String("ticker", run.Ticker), applogger.Error(cerr))
	}
	u.publish(run)

	u.metrics.RecordRun(string(models.RunFailed))
	u.metrics.RecordError("analysis")
	emit("")

	u.error("analysis failed", applogger.String("run_id", run.ID), applogger.String("ticker", run.Ticker), applogger.Error(err))
	return run, fmt.Errorf("analysis %s: %w", run.Ticker, err)
}

func (u *AnalysisUseCase) loadWeights(ctx context.Context, userID string) models.SourceWeights {
	w, err := u.weights.Get(ctx, userID)
	if err != nil {
		u.warn("load weights failed, using defaults", applogger.String("user", userID), applogger.Error(err))
		return models.DefaultSourceWeights()
	}
	return w
}

// publish runs detached from the request context so a cancelled request still records its outcome.
func (u *AnalysisUseCase) publish(run *models.AnalysisRun) {
	if u.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.pub.PublishAnalysis(ctx, models.NewAnalysisEvent(run)); err != nil {
		u.metrics.RecordError("publish")
		u.warn("publish analysis event failed", applogger.String("run_id", run.ID), applogger.Error(err))
	}
}

func (u *AnalysisUseCase) release(ticker string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.runs.Release(ctx, ticker); err != nil {
		u.warn("release run lock failed", applogger.String("ticker", ticker), applogger.Error(err))
	}
}

func (u *AnalysisUseCase) info(msg string, fields ...applogger.Field) {
	if u.logger != nil {
		u.logger.Info(msg, fields...)
	}
}

func (u *AnalysisUseCase) warn(msg string, fields ...applogger.Field) {
	if u.logger != nil {
		u.logger.Warn(msg, fields...)
	}
}

func (u *AnalysisUseCase) error(msg string, fields ...applogger.Field) {
	if u.logger != nil {
		u.logger.Error(msg, fields...)
	}
}
