package aggregator

import (
	"errors"
	"testing"

	"StockSense/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := map[int]models.Recommendation{
		31:   models.RecommendationBuy,
		30:   models.RecommendationHold,
		0:    models.RecommendationHold,
		-30:  models.RecommendationHold,
		-31:  models.RecommendationSell,
		100:  models.RecommendationBuy,
		-100: models.RecommendationSell,
	}
	for score, want := range cases {
		assert.Equal(t, want, Classify(score), "score %d", score)
	}
}

func TestClassifyOverallBoundaries(t *testing.T) {
	cases := map[int]string{
		31:  VerdictStrongBuy,
		30:  VerdictBuy,
		11:  VerdictBuy,
		10:  VerdictHold,
		0:   VerdictHold,
		-10: VerdictHold,
		-11: VerdictSell,
		-30: VerdictSell,
		-31: VerdictStrongSell,
	}
	for score, want := range cases {
		assert.Equal(t, want, ClassifyOverall(score), "score %d", score)
	}
}

func TestAggregateSingleSourceWeight(t *testing.T) {
	w := models.SourceWeights{MLModel: 100}
	for _, other := range []int{-100, -7, 0, 63, 100} {
		res := Aggregate(50, other, other, other, w)
		assert.Equal(t, 50, res.Overall)
	}
}

func TestAggregateEqualWeights(t *testing.T) {
	w := models.DefaultSourceWeights()

	res := Aggregate(50, 50, 50, 50, w)
	assert.Equal(t, 50, res.Overall)

	res = Aggregate(50, -50, 50, -50, w)
	assert.Equal(t, 0, res.Overall)
}

func TestAggregateZeroWeights(t *testing.T) {
	require.NotPanics(t, func() {
		res := Aggregate(50, 50, 50, 50, models.SourceWeights{})
		assert.Equal(t, 0, res.Overall)
	})
}

func TestAggregateRoundsHalfAwayFromZero(t *testing.T) {
	w := models.SourceWeights{MLModel: 1, NewsOutlets: 1}

	assert.Equal(t, 1, Aggregate(50, -49, 0, 0, w).Overall)   // 0.5
	assert.Equal(t, -1, Aggregate(-50, 49, 0, 0, w).Overall)  // -0.5
	assert.Equal(t, 3, Aggregate(50, -45, 0, 0, w).Overall)   // 2.5
	assert.Equal(t, -3, Aggregate(-50, 45, 0, 0, w).Overall)  // -2.5
	assert.Equal(t, 24, Aggregate(50, -2, 0, 0, w).Overall)   // 24
	assert.Equal(t, 17, Aggregate(50, 0, 0, 0, models.SourceWeights{MLModel: 1, NewsOutlets: 2}).Overall)
}

func TestAggregateSourcesMatchClassify(t *testing.T) {
	res := Aggregate(50, -31, 30, -100, models.DefaultSourceWeights())

	require.Len(t, res.Sources, 4)
	assert.Equal(t, models.SourceScore{Score: 50, Recommendation: models.RecommendationBuy}, res.Sources[models.SourceMLModel])
	assert.Equal(t, models.SourceScore{Score: -31, Recommendation: models.RecommendationSell}, res.Sources[models.SourceNewsOutlets])
	assert.Equal(t, models.SourceScore{Score: 30, Recommendation: models.RecommendationHold}, res.Sources[models.SourceCongress])
	assert.Equal(t, models.SourceScore{Score: -100, Recommendation: models.RecommendationSell}, res.Sources[models.SourceSocialMedia])
}

func TestAggregateStaysInRange(t *testing.T) {
	weights := []models.SourceWeights{
		models.DefaultSourceWeights(),
		{MLModel: 100, NewsOutlets: 100, Congress: 100, SocialMedia: 100},
		{MLModel: 3, NewsOutlets: 0, Congress: 97, SocialMedia: 11},
		{NewsOutlets: 1},
	}
	scores := []int{-100, -99, -50, -1, 0, 1, 50, 99, 100}
	for _, w := range weights {
		for _, a := range scores {
			for _, b := range scores {
				res := Aggregate(a, b, -a, b, w)
				assert.GreaterOrEqual(t, res.Overall, MinScore)
				assert.LessOrEqual(t, res.Overall, MaxScore)
			}
		}
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	w := models.SourceWeights{MLModel: 40, NewsOutlets: 10, Congress: 30, SocialMedia: 20}
	first := Aggregate(-50, 12, 47, -88, w)
	second := Aggregate(-50, 12, 47, -88, w)
	assert.Equal(t, first, second)
}

func TestScoreFromRecommendation(t *testing.T) {
	cases := map[string]int{
		"BUY":  50,
		"buy":  50,
		"Sell": -50,
		"SELL": -50,
		"hold": 0,
		"HoLd": 0,
	}
	for in, want := range cases {
		got, err := ScoreFromRecommendation(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"MAYBE", "", " BUY", "strong buy"} {
		_, err := ScoreFromRecommendation(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrInvalidRecommendation))
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 100, ClampScore(140))
	assert.Equal(t, -100, ClampScore(-101))
	assert.Equal(t, 42, ClampScore(42))
}
