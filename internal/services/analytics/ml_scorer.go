package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	domsvc "StockSense/internal/domain/service"
	"StockSense/internal/services/aggregator"
)

// ErrMissingRecommendation is returned when the response has no recommendation string.
var ErrMissingRecommendation = errors.New("missing recommendation")

// MLConfig configures HTTPMLScorer.
type MLConfig struct {
	BaseURL       string
	Path          string
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

// HTTPMLScorer fetches the model recommendation for a ticker and maps it to a score.
type HTTPMLScorer struct {
	base *HTTPServiceBase
	path string
}

// NewHTTPMLScorer creates the ML recommendation client.
func NewHTTPMLScorer(cfg MLConfig) *HTTPMLScorer {
	path := cfg.Path
	if path == "" {
		path = "/recommendation"
	}
	return &HTTPMLScorer{
		base: NewHTTPServiceBase(cfg.BaseURL, cfg.Timeout, WithRetry(cfg.RetryAttempts, cfg.RetryBackoff)),
		path: path,
	}
}

type mlResponse struct {
	Recommendation *string         `json:"recommendation"`
	Error          json.RawMessage `json:"error"`
}

// FetchScore returns 50, -50 or 0 for BUY, SELL or HOLD. Anything else is an error.
func (s *HTTPMLScorer) FetchScore(ctx context.Context, ticker string) (int, error) {
	var resp mlResponse
	if err := s.base.GetJSONWithRetry(ctx, s.path, url.Values{"symbol": {ticker}}, &resp); err != nil {
		return 0, fmt.Errorf("ml recommendation: %w", err)
	}

	if msg, ok := errorField(resp.Error); ok {
		return 0, fmt.Errorf("ml recommendation: service error: %s", msg)
	}
	if resp.Recommendation == nil {
		return 0, fmt.Errorf("ml recommendation: %w", ErrMissingRecommendation)
	}

	score, err := aggregator.ScoreFromRecommendation(*resp.Recommendation)
	if err != nil {
		return 0, fmt.Errorf("ml recommendation: %w", err)
	}
	return score, nil
}

// errorField reports whether a JSON error field carries a value. null, false and "" do not.
func errorField(raw json.RawMessage) (string, bool) {
	switch string(raw) {
	case "", "null", "false", `""`:
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg, true
	}
	return string(raw), true
}

var _ domsvc.MLScorer = (*HTTPMLScorer)(nil)
