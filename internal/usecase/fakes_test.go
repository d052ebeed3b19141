package usecase

import (
	"context"
	"sync"
	"testing"

	"StockSense/internal/domain/models"
	"StockSense/internal/repository"
	pkgcache "StockSense/pkg/cache"
)

type fakeML struct {
	score int
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeML) FetchScore(context.Context, string) (int, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.score, f.err
}

type fakeFeed struct {
	trades []models.CongressTrade
	err    error
}

func (f *fakeFeed) Trades(context.Context, string, int, int) ([]models.CongressTrade, error) {
	return f.trades, f.err
}

type fakeScorer struct {
	score int
	err   error
}

func (f *fakeScorer) Score(context.Context, string) (int, error) { return f.score, f.err }

type fakeMetrics struct {
	mu           sync.Mutex
	runs         map[string]int
	sourceErrors map[string]int
	errors       map[string]int
	overall      map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		runs:         map[string]int{},
		sourceErrors: map[string]int{},
		errors:       map[string]int{},
		overall:      map[string]int{},
	}
}

func (m *fakeMetrics) RecordRun(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[status]++
}

func (m *fakeMetrics) RecordSourceError(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceErrors[source]++
}

func (m *fakeMetrics) RecordOverall(ticker string, overall int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overall[ticker] = overall
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.AnalysisEvent
}

func (p *fakePublisher) PublishAnalysis(_ context.Context, ev *models.AnalysisEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeQueue struct {
	mu       sync.Mutex
	messages []interface{}
	err      error
}

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, payload)
	return nil
}

type fixture struct {
	ml      *fakeML
	feed    *fakeFeed
	news    *fakeScorer
	social  *fakeScorer
	weights *repository.CacheWeightsStore
	runs    *repository.CacheRunStore
	metrics *fakeMetrics
	pub     *fakePublisher
	uc      *AnalysisUseCase
}

func newFixture(t *testing.T, cfg AnalysisConfig) *fixture {
	t.Helper()
	cache := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = cache.Close() })

	f := &fixture{
		ml:      &fakeML{score: 50},
		feed:    &fakeFeed{},
		news:    &fakeScorer{},
		social:  &fakeScorer{},
		weights: repository.NewCacheWeightsStore(cache),
		runs:    repository.NewCacheRunStore(cache),
		metrics: newFakeMetrics(),
		pub:     &fakePublisher{},
	}
	f.uc = NewAnalysisUseCase(Sources{ML: f.ml, Congress: f.feed, News: f.news, Social: f.social}, f.weights, f.runs, f.metrics, cfg)
	f.uc.SetPublisher(f.pub)
	return f
}

func trades(types ...string) []models.CongressTrade {
	out := make([]models.CongressTrade, 0, len(types))
	for _, tt := range types {
		out = append(out, models.CongressTrade{Name: "member", TradeType: tt})
	}
	return out
}
