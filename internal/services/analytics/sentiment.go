package analytics

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	domsvc "StockSense/internal/domain/service"
	"StockSense/internal/service/finnhub"
	"StockSense/internal/services/aggregator"
)

// FinnhubNewsScorer scores news sentiment as (bullish - bearish) percent.
type FinnhubNewsScorer struct {
	client *finnhub.Client
}

func NewFinnhubNewsScorer(client *finnhub.Client) *FinnhubNewsScorer {
	return &FinnhubNewsScorer{client: client}
}

func (s *FinnhubNewsScorer) Score(ctx context.Context, ticker string) (int, error) {
	news, err := s.client.NewsSentiment(ctx, ticker)
	if err != nil {
		return 0, fmt.Errorf("news sentiment: %w", err)
	}
	diff := news.Sentiment.BullishPercent - news.Sentiment.BearishPercent
	return aggregator.ClampScore(int(math.Round(diff * 100))), nil
}

// FinnhubSocialScorer scores the mean social sentiment. No data scores 0.
type FinnhubSocialScorer struct {
	client *finnhub.Client
}

func NewFinnhubSocialScorer(client *finnhub.Client) *FinnhubSocialScorer {
	return &FinnhubSocialScorer{client: client}
}

func (s *FinnhubSocialScorer) Score(ctx context.Context, ticker string) (int, error) {
	social, err := s.client.SocialSentiment(ctx, ticker)
	if err != nil {
		return 0, fmt.Errorf("social sentiment: %w", err)
	}
	if len(social.Data) == 0 {
		return 0, nil
	}
	var sum float64
	for _, d := range social.Data {
		sum += d.Score
	}
	mean := sum / float64(len(social.Data))
	return aggregator.ClampScore(int(math.Round(mean * 100))), nil
}

// PlaceholderScorer returns a uniform integer in [-100, 100). It stands in for a
// sentiment backend that is not configured.
type PlaceholderScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlaceholderScorer creates a generator. A zero seed uses the current time.
func NewPlaceholderScorer(seed int64) *PlaceholderScorer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &PlaceholderScorer{rng: rand.New(rand.NewSource(seed))}
}

func (s *PlaceholderScorer) Score(context.Context, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(200) - 100, nil
}

var (
	_ domsvc.SentimentScorer = (*FinnhubNewsScorer)(nil)
	_ domsvc.SentimentScorer = (*FinnhubSocialScorer)(nil)
	_ domsvc.SentimentScorer = (*PlaceholderScorer)(nil)
)
