package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSourceWeightsDefaults(t *testing.T) {
	w := DefaultSourceWeights()
	assert.Equal(t, 100, w.Total())
	for _, s := range Sources {
		assert.Equal(t, 25, w.Of(s))
	}
	assert.Zero(t, w.Of(Source("unknown")))
}

func TestSourceWeightsClamp(t *testing.T) {
	w := SourceWeights{MLModel: 150, NewsOutlets: -5, Congress: 40, SocialMedia: 100}.Clamp()
	assert.Equal(t, SourceWeights{MLModel: 100, NewsOutlets: 0, Congress: 40, SocialMedia: 100}, w)
}

func TestSourceWeightsValidate(t *testing.T) {
	assert.NoError(t, SourceWeights{}.Validate())
	err := SourceWeights{Congress: -1}.Validate()
	assert.True(t, errors.Is(err, ErrNegativeWeight))
	assert.Contains(t, err.Error(), "congress")
}

func TestUpdateWeightsRequestApply(t *testing.T) {
	zero, seventy := 0, 70
	req := UpdateWeightsRequest{MLModel: &seventy, SocialMedia: &zero}

	got := req.Apply(DefaultSourceWeights())
	assert.Equal(t, SourceWeights{MLModel: 70, NewsOutlets: 25, Congress: 25, SocialMedia: 0}, got)
}

func TestNewAnalysisEvent(t *testing.T) {
	finished := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	run := &AnalysisRun{
		ID:      "run-1",
		Ticker:  "AAPL",
		UserID:  "u1",
		Status:  RunComplete,
		Verdict: "Buy",
		Result: &AnalysisResult{
			Overall: 24,
			Sources: map[Source]SourceScore{
				SourceMLModel:     {Score: 50, Recommendation: RecommendationBuy},
				SourceNewsOutlets: {Score: 40, Recommendation: RecommendationBuy},
				SourceCongress:    {Score: -20, Recommendation: RecommendationHold},
				SourceSocialMedia: {Score: 30, Recommendation: RecommendationHold},
			},
		},
		FinishedAt: &finished,
	}

	ev := NewAnalysisEvent(run)
	assert.Equal(t, 24, ev.Overall)
	assert.Equal(t, 50, ev.MLScore)
	assert.Equal(t, 40, ev.NewsScore)
	assert.Equal(t, -20, ev.CongressScore)
	assert.Equal(t, 30, ev.SocialScore)
	assert.Equal(t, finished, ev.Timestamp)
}

func TestNewAnalysisEventFailedRun(t *testing.T) {
	ev := NewAnalysisEvent(&AnalysisRun{ID: "r", Ticker: "AAPL", Status: RunFailed, Error: "ml down"})
	assert.Equal(t, RunFailed, ev.Status)
	assert.Zero(t, ev.Overall)
	assert.Equal(t, "ml down", ev.Error)
	assert.False(t, ev.Timestamp.IsZero())
}
