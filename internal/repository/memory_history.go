package repository

import (
	"context"
	"sync"
	"time"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
)

// MemoryHistory keeps the most recent events per ticker in process. It backs
// the history endpoint when ClickHouse is disabled.
type MemoryHistory struct {
	mu        sync.RWMutex
	perTicker int
	events    map[string][]models.AnalysisEvent
}

// NewMemoryHistory keeps at most perTicker events for each ticker.
func NewMemoryHistory(perTicker int) *MemoryHistory {
	if perTicker <= 0 {
		perTicker = 200
	}
	return &MemoryHistory{perTicker: perTicker, events: make(map[string][]models.AnalysisEvent)}
}

func (h *MemoryHistory) Insert(_ context.Context, ev *models.AnalysisEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.events[ev.Ticker], *ev)
	if len(list) > h.perTicker {
		list = list[len(list)-h.perTicker:]
	}
	h.events[ev.Ticker] = list
	return nil
}

// Recent returns newest first.
func (h *MemoryHistory) Recent(_ context.Context, ticker string, since time.Time, limit int) ([]models.AnalysisEvent, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := h.events[ticker]
	out := make([]models.AnalysisEvent, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		if list[i].Timestamp.Before(since) {
			continue
		}
		out = append(out, list[i])
	}
	return out, nil
}

func (h *MemoryHistory) Health(context.Context) error { return nil }

// HistoryPublisher writes events straight into a HistoryStore when Kafka is disabled.
type HistoryPublisher struct {
	store drepo.HistoryStore
}

func NewHistoryPublisher(store drepo.HistoryStore) *HistoryPublisher {
	return &HistoryPublisher{store: store}
}

func (p *HistoryPublisher) PublishAnalysis(ctx context.Context, ev *models.AnalysisEvent) error {
	return p.store.Insert(ctx, ev)
}

func (p *HistoryPublisher) Close() error { return nil }

var (
	_ drepo.HistoryStore   = (*MemoryHistory)(nil)
	_ drepo.EventPublisher = (*HistoryPublisher)(nil)
)
