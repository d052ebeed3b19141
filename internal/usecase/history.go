package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	pkgkafka "StockSense/pkg/kafka"
	applogger "StockSense/pkg/logger"
	"StockSense/pkg/util"
)

// AnalysisEventsHandler consumes analysis events and writes them to the history store.
type AnalysisEventsHandler struct {
	topic   string
	store   drepo.HistoryStore
	metrics drepo.Metrics
	logger  *applogger.Logger
}

func NewAnalysisEventsHandler(topic string, store drepo.HistoryStore, metrics drepo.Metrics) *AnalysisEventsHandler {
	return &AnalysisEventsHandler{topic: topic, store: store, metrics: metrics}
}

// SetLogger injects logger.
func (h *AnalysisEventsHandler) SetLogger(l *applogger.Logger) { h.logger = l }

func (h *AnalysisEventsHandler) Topic() string { return h.topic }

func (h *AnalysisEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.AnalysisEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		// Malformed payloads will never decode; drop instead of retrying.
		if h.logger != nil {
			h.logger.Warn("analysis event dropped", applogger.String("trace_id", pkgkafka.TraceIDFromContext(ctx)), applogger.Error(err))
		}
		return nil
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	start := time.Now()
	err := h.store.Insert(ctx, &ev)
	h.metrics.RecordLatency("history_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("history_insert")
		return fmt.Errorf("insert history %s: %w", ev.RunID, err)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*AnalysisEventsHandler)(nil)

// HistoryUseCase reads past analysis events.
type HistoryUseCase struct {
	store drepo.HistoryStore
}

func NewHistoryUseCase(store drepo.HistoryStore) *HistoryUseCase {
	return &HistoryUseCase{store: store}
}

// Recent returns up to limit events for ticker, newest first, not older than since.
func (u *HistoryUseCase) Recent(ctx context.Context, ticker string, since time.Time, limit int) ([]models.AnalysisEvent, error) {
	ticker = util.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrInvalidTicker
	}
	if limit <= 0 {
		limit = 50
	}
	return u.store.Recent(ctx, ticker, since, limit)
}
