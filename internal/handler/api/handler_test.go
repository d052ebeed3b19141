package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StockSense/internal/domain/models"
	domsvc "StockSense/internal/domain/service"
	"StockSense/internal/repository"
	"StockSense/internal/services/analytics"
	"StockSense/internal/usecase"
	xhttp "StockSense/pkg/http"
	pkgcache "StockSense/pkg/cache"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubML struct{ err error }

func (s stubML) FetchScore(context.Context, string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return 50, nil
}

type stubFeed struct {
	trades []models.CongressTrade
	err    error
}

func (s stubFeed) Trades(context.Context, string, int, int) ([]models.CongressTrade, error) {
	return s.trades, s.err
}

type stubScorer int

func (s stubScorer) Score(context.Context, string) (int, error) { return int(s), nil }

type nopMetrics struct{}

func (nopMetrics) RecordRun(string) {}
func (nopMetrics) RecordSourceError(string) {}
func (nopMetrics) RecordOverall(string, int) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, float64) {}

type memQueue struct{ payloads []interface{} }

func (q *memQueue) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	q.payloads = append(q.payloads, payload)
	return nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	e       *echo.Echo
	runs    *repository.CacheRunStore
	queue   *memQueue
	history *repository.MemoryHistory
}

type serverOpts struct {
	ml       domsvc.MLScorer
	congress *stubFeed
	handler  []Option
}

func newTestServer(t *testing.T, o serverOpts) *testServer {
	t.Helper()
	cache := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = cache.Close() })

	runs := repository.NewCacheRunStore(cache)
	weights := repository.NewCacheWeightsStore(cache)
	history := repository.NewMemoryHistory(50)
	q := &memQueue{}

	if o.ml == nil {
		o.ml = stubML{}
	}
	src := usecase.Sources{ML: o.ml, News: stubScorer(40), Social: stubScorer(30)}
	if o.congress != nil {
		src.Congress = *o.congress
	}
	analysis := usecase.NewAnalysisUseCase(src, weights, runs, nopMetrics{}, usecase.AnalysisConfig{})
	analysis.SetPublisher(repository.NewHistoryPublisher(history))

	svc := Services{
		Analysis:    analysis,
		Scans:       usecase.NewScanUseCase(runs, q, time.Minute),
		Preferences: usecase.NewPreferenceUseCase(weights),
		History:     usecase.NewHistoryUseCase(history),
	}
	if o.congress != nil {
		svc.Congress = *o.congress
	}

	e := echo.New()
	NewAnalysisHandler(svc, o.handler...).RegisterRoutes(e)
	return &testServer{e: e, runs: runs, queue: q, history: history}
}

func (s *testServer) do(t *testing.T, method, target, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestAnalyze(t *testing.T) {
	s := newTestServer(t, serverOpts{})

	code, env := s.do(t, http.MethodGet, "/api/analysis?ticker=aapl&user=alice", "")
	require.Equal(t, http.StatusOK, code)

	var run models.AnalysisRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, "AAPL", run.Ticker)
	assert.Equal(t, models.RunComplete, run.Status)
	require.NotNil(t, run.Result)
	// (50 + 40 + 0 + 30) / 4
	assert.Equal(t, 30, run.Result.Overall)
	assert.Equal(t, "Buy", run.Verdict)
}

func TestAnalyzeValidation(t *testing.T) {
	s := newTestServer(t, serverOpts{})

	code, env := s.do(t, http.MethodGet, "/api/analysis", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), "ERR_REQUIRED")

	code, _ = s.do(t, http.MethodGet, "/api/analysis?ticker=%20%20", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAnalyzeMLFailureIsBadGateway(t *testing.T) {
	s := newTestServer(t, serverOpts{ml: stubML{err: errors.New("ml recommendation: unexpected status 503")}})

	code, env := s.do(t, http.MethodGet, "/api/analysis?ticker=AAPL", "")
	assert.Equal(t, http.StatusBadGateway, code)

	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UPSTREAM", errs[0].Code)
	assert.Contains(t, errs[0].Message, "unexpected status 503")
	assert.NotEmpty(t, errs[0].Params["run_id"])
}

func TestAnalyzeMLTimeoutKeepsUpstreamMessage(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(`{"recommendation":"BUY"}`))
	}))
	defer slow.Close()

	ml := analytics.NewHTTPMLScorer(analytics.MLConfig{BaseURL: slow.URL, Timeout: 50 * time.Millisecond})
	s := newTestServer(t, serverOpts{ml: ml})

	code, env := s.do(t, http.MethodGet, "/api/analysis?ticker=AAPL", "")
	assert.Equal(t, http.StatusGatewayTimeout, code)

	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UPSTREAM_TIMEOUT", errs[0].Code)
	assert.Contains(t, errs[0].Message, "ml recommendation")
	assert.Contains(t, errs[0].Message, "Timeout")
	assert.NotEqual(t, "analysis timed out", errs[0].Message)
}

func TestAnalyzeRunInProgressIsConflict(t *testing.T) {
	s := newTestServer(t, serverOpts{})
	ok, err := s.runs.Acquire(context.Background(), "AAPL", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	code, _ := s.do(t, http.MethodGet, "/api/analysis?ticker=AAPL", "")
	assert.Equal(t, http.StatusConflict, code)
}

func TestLatestAndHistory(t *testing.T) {
	s := newTestServer(t, serverOpts{})

	code, _ := s.do(t, http.MethodGet, "/api/analysis/latest?ticker=AAPL", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/analysis?ticker=AAPL", "")
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodGet, "/api/analysis/latest?ticker=aapl", "")
	require.Equal(t, http.StatusOK, code)
	var run models.AnalysisRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, 30, run.Result.Overall)

	code, env = s.do(t, http.MethodGet, "/api/analysis/history?ticker=AAPL&limit=5", "")
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Rows  []models.AnalysisEvent `json:"rows"`
		Total int64                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, run.ID, list.Rows[0].RunID)

	code, _ = s.do(t, http.MethodGet, "/api/analysis/history?ticker=AAPL&from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/api/analysis/history?ticker=AAPL&from=2999-01-01", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list.Rows)
}

func TestScanEndpoints(t *testing.T) {
	s := newTestServer(t, serverOpts{})

	code, env := s.do(t, http.MethodPost, "/api/scans", `{"ticker":"msft","user":"alice"}`)
	require.Equal(t, http.StatusCreated, code)
	var scan models.AnalysisRun
	require.NoError(t, json.Unmarshal(env.Data, &scan))
	assert.Equal(t, "MSFT", scan.Ticker)
	assert.Equal(t, models.RunRunning, scan.Status)
	assert.Len(t, s.queue.payloads, 1)

	code, env = s.do(t, http.MethodGet, "/api/scans/"+scan.ID, "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &scan))
	assert.Equal(t, models.RunRunning, scan.Status)

	code, env = s.do(t, http.MethodDelete, "/api/scans/"+scan.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"idle"`)

	code, _ = s.do(t, http.MethodGet, "/api/scans/"+scan.ID, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodDelete, "/api/scans/"+scan.ID, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/scans/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/scans", `{"user":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWeightsEndpoints(t *testing.T) {
	s := newTestServer(t, serverOpts{})

	code, env := s.do(t, http.MethodGet, "/api/preferences/alice/weights", "")
	require.Equal(t, http.StatusOK, code)
	var w models.SourceWeights
	require.NoError(t, json.Unmarshal(env.Data, &w))
	assert.Equal(t, models.DefaultSourceWeights(), w)

	code, env = s.do(t, http.MethodPut, "/api/preferences/alice/weights", `{"ml-model":60,"congress":500}`)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &w))
	assert.Equal(t, models.SourceWeights{MLModel: 60, NewsOutlets: 25, Congress: 100, SocialMedia: 25}, w)

	code, _ = s.do(t, http.MethodPut, "/api/preferences/alice/weights", `{"news-outlets":-5}`)
	assert.Equal(t, http.StatusBadRequest, code)

	// weights are applied to the next run
	code, env = s.do(t, http.MethodGet, "/api/analysis?ticker=AAPL&user=alice", "")
	require.Equal(t, http.StatusOK, code)
	var run models.AnalysisRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	// (50*60 + 40*25 + 0*100 + 30*25) / 210 = 22.6 -> 23
	assert.Equal(t, 23, run.Result.Overall)

	code, env = s.do(t, http.MethodDelete, "/api/preferences/alice/weights", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &w))
	assert.Equal(t, models.DefaultSourceWeights(), w)
}

func TestCongressEndpoint(t *testing.T) {
	feed := &stubFeed{trades: []models.CongressTrade{
		{Name: "A", TradeType: "sell"},
		{Name: "B", TradeType: "Sell"},
		{Name: "C", TradeType: "buy"},
	}}
	s := newTestServer(t, serverOpts{congress: feed})

	code, env := s.do(t, http.MethodGet, "/api/congress?ticker=nvda", "")
	require.Equal(t, http.StatusOK, code)
	var activity models.CongressActivity
	require.NoError(t, json.Unmarshal(env.Data, &activity))
	assert.Equal(t, "NVDA", activity.Ticker)
	assert.Len(t, activity.Trades, 3)
	// sell ratio 2/3 -> -(40 + 6)
	assert.Equal(t, -46, activity.Score)
}

func TestCongressEndpointErrors(t *testing.T) {
	s := newTestServer(t, serverOpts{})
	code, _ := s.do(t, http.MethodGet, "/api/congress?ticker=NVDA", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	upstream := &xhttp.StatusError{Code: http.StatusUnauthorized}
	s = newTestServer(t, serverOpts{congress: &stubFeed{err: upstream}})
	code, _ = s.do(t, http.MethodGet, "/api/congress?ticker=NVDA", "")
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestClassifyEndpoint(t *testing.T) {
	s := newTestServer(t, serverOpts{})

	cases := map[string]ClassifyResponse{
		"31":  {Score: 31, Recommendation: models.RecommendationBuy, Overall: "Strong Buy"},
		"30":  {Score: 30, Recommendation: models.RecommendationHold, Overall: "Buy"},
		"-10": {Score: -10, Recommendation: models.RecommendationHold, Overall: "Hold"},
		"-31": {Score: -31, Recommendation: models.RecommendationSell, Overall: "Strong Sell"},
	}
	for score, want := range cases {
		code, env := s.do(t, http.MethodGet, "/api/classify?score="+score, "")
		require.Equal(t, http.StatusOK, code, score)
		var got ClassifyResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, want, got, score)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, serverOpts{handler: []Option{WithRateLimit(1, 0.001)}})

	code, _ := s.do(t, http.MethodGet, "/api/analysis?ticker=AAPL", "")
	assert.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodGet, "/api/analysis?ticker=AAPL", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, string(env.Data), "ERR_RATE_LIMITED")

	// unlimited endpoints are unaffected
	code, _ = s.do(t, http.MethodGet, "/api/analysis/latest?ticker=AAPL", "")
	assert.Equal(t, http.StatusOK, code)
}
