// Package aggregator combines per-source scores into one weighted verdict.
// Everything here is a pure function of its arguments.
package aggregator

import (
	"errors"
	"fmt"
	"strings"

	"StockSense/internal/domain/models"

	"github.com/shopspring/decimal"
)

const (
	// Scores strictly above BuyThreshold are buy, strictly below SellThreshold are sell.
	// The thresholds themselves are hold.
	BuyThreshold  = 30
	SellThreshold = -30

	MinScore = -100
	MaxScore = 100

	// FallbackTotalWeight replaces a zero weight sum.
	FallbackTotalWeight = 100
)

// Overall verdict labels.
const (
	VerdictStrongBuy  = "Strong Buy"
	VerdictBuy        = "Buy"
	VerdictHold       = "Hold"
	VerdictSell       = "Sell"
	VerdictStrongSell = "Strong Sell"
)

// ML recommendation scores.
const (
	MLBuyScore  = 50
	MLSellScore = -50
	MLHoldScore = 0
)

var ErrInvalidRecommendation = errors.New("invalid recommendation value")

// Classify maps a score to buy, sell or hold.
func Classify(score int) models.Recommendation {
	switch {
	case score > BuyThreshold:
		return models.RecommendationBuy
	case score < SellThreshold:
		return models.RecommendationSell
	default:
		return models.RecommendationHold
	}
}

// ClassifyOverall maps an overall score to one of five verdict bands.
// Bands are symmetric: [-10, 10] is Hold and [-30, -11] is Sell.
func ClassifyOverall(score int) string {
	switch {
	case score > 30:
		return VerdictStrongBuy
	case score > 10:
		return VerdictBuy
	case score >= -10:
		return VerdictHold
	case score >= -30:
		return VerdictSell
	default:
		return VerdictStrongSell
	}
}

// NewSourceScore builds a SourceScore whose label always matches its score.
func NewSourceScore(score int) models.SourceScore {
	return models.SourceScore{Score: score, Recommendation: Classify(score)}
}

// ClampScore bounds a score to [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// ScoreFromRecommendation maps BUY, SELL or HOLD (any case) to 50, -50 or 0.
func ScoreFromRecommendation(text string) (int, error) {
	switch strings.ToUpper(text) {
	case "BUY":
		return MLBuyScore, nil
	case "SELL":
		return MLSellScore, nil
	case "HOLD":
		return MLHoldScore, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRecommendation, text)
	}
}

// Aggregate computes the weighted overall score. The weighted mean is divided
// exactly and rounded half away from zero; a zero weight sum is replaced by
// FallbackTotalWeight.
func Aggregate(mlScore, newsScore, congressScore, socialScore int, weights models.SourceWeights) models.AnalysisResult {
	total := weights.Total()
	if total == 0 {
		total = FallbackTotalWeight
	}

	weighted := int64(mlScore)*int64(weights.MLModel) +
		int64(newsScore)*int64(weights.NewsOutlets) +
		int64(congressScore)*int64(weights.Congress) +
		int64(socialScore)*int64(weights.SocialMedia)

	overall := decimal.NewFromInt(weighted).DivRound(decimal.NewFromInt(int64(total)), 0)

	return models.AnalysisResult{
		Overall: int(overall.IntPart()),
		Sources: map[models.Source]models.SourceScore{
			models.SourceMLModel:     NewSourceScore(mlScore),
			models.SourceNewsOutlets: NewSourceScore(newsScore),
			models.SourceCongress:    NewSourceScore(congressScore),
			models.SourceSocialMedia: NewSourceScore(socialScore),
		},
	}
}
