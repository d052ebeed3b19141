package models

import (
	"errors"
	"fmt"
)

// Recommendation is the per-source label derived from a score.
type Recommendation string

const (
	RecommendationBuy  Recommendation = "buy"
	RecommendationSell Recommendation = "sell"
	RecommendationHold Recommendation = "hold"
)

// Source identifies one of the signal channels feeding an analysis.
type Source string

const (
	SourceMLModel     Source = "ml-model"
	SourceNewsOutlets Source = "news-outlets"
	SourceCongress    Source = "congress"
	SourceSocialMedia Source = "social-media"
)

// Sources lists every signal channel in display order.
var Sources = []Source{SourceMLModel, SourceNewsOutlets, SourceCongress, SourceSocialMedia}

// SourceScore pairs a score in [-100, 100] with the label derived from it.
// Build it with aggregator.NewSourceScore so the two never disagree.
type SourceScore struct {
	Score          int            `json:"score"`
	Recommendation Recommendation `json:"recommendation"`
}

// AnalysisResult is the output of one aggregation. It is a pure function of
// the four source scores and the weights it was computed with.
type AnalysisResult struct {
	Overall int                    `json:"overall"`
	Sources map[Source]SourceScore `json:"sources"`
}

const (
	DefaultSourceWeight = 25
	MaxSourceWeight     = 100
)

// ErrNegativeWeight is returned by Validate.
var ErrNegativeWeight = errors.New("weight must be non-negative")

// SourceWeights holds the user-configurable importance of each source.
type SourceWeights struct {
	MLModel     int `json:"ml-model" validate:"gte=0"`
	NewsOutlets int `json:"news-outlets" validate:"gte=0"`
	Congress    int `json:"congress" validate:"gte=0"`
	SocialMedia int `json:"social-media" validate:"gte=0"`
}

// DefaultSourceWeights returns the equal 25/25/25/25 split.
func DefaultSourceWeights() SourceWeights {
	return SourceWeights{
		MLModel:     DefaultSourceWeight,
		NewsOutlets: DefaultSourceWeight,
		Congress:    DefaultSourceWeight,
		SocialMedia: DefaultSourceWeight,
	}
}

// Total returns the sum of all four weights.
func (w SourceWeights) Total() int {
	return w.MLModel + w.NewsOutlets + w.Congress + w.SocialMedia
}

// Of returns the weight for a single source.
func (w SourceWeights) Of(s Source) int {
	switch s {
	case SourceMLModel:
		return w.MLModel
	case SourceNewsOutlets:
		return w.NewsOutlets
	case SourceCongress:
		return w.Congress
	case SourceSocialMedia:
		return w.SocialMedia
	default:
		return 0
	}
}

// Clamp bounds every weight to [0, MaxSourceWeight].
func (w SourceWeights) Clamp() SourceWeights {
	return SourceWeights{
		MLModel:     clampWeight(w.MLModel),
		NewsOutlets: clampWeight(w.NewsOutlets),
		Congress:    clampWeight(w.Congress),
		SocialMedia: clampWeight(w.SocialMedia),
	}
}

// Validate rejects negative weights. A zero total is allowed.
func (w SourceWeights) Validate() error {
	for _, s := range Sources {
		if v := w.Of(s); v < 0 {
			return fmt.Errorf("%w: %s is %d", ErrNegativeWeight, s, v)
		}
	}
	return nil
}

func clampWeight(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxSourceWeight {
		return MaxSourceWeight
	}
	return v
}
