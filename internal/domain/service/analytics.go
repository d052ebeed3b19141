package service

import (
	"context"

	"StockSense/internal/domain/models"
)

// MLScorer fetches the ML recommendation for a ticker and maps it to a score.
// Any failure is fatal to the analysis that asked for it.
type MLScorer interface {
	FetchScore(ctx context.Context, ticker string) (int, error)
}

// CongressFeed lists congressional trades for a ticker.
type CongressFeed interface {
	Trades(ctx context.Context, ticker string, page, size int) ([]models.CongressTrade, error)
}

// SentimentScorer produces a sentiment score in [-100, 100] for a ticker.
type SentimentScorer interface {
	Score(ctx context.Context, ticker string) (int, error)
}
