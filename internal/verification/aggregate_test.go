package verification

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"titleguard/internal/claims/models"
)

func TestAggregate_WorkedExamples(t *testing.T) {
	t.Run("high scores without polygon auto-approve", func(t *testing.T) {
		out := Aggregate(Scores{Document: 0.9, GPS: 0.9, CrossReference: 0.9}, false, false)

		assert.InDelta(t, 0.9, out.OverallConfidence, 1e-9)
		assert.Equal(t, models.ConfidenceHigh, out.Level)
		assert.Equal(t, RecommendAutoApprove, out.Recommendation)
		assert.False(t, out.HITLOverride)
	})

	t.Run("high scores with clear polygon auto-approve", func(t *testing.T) {
		out := Aggregate(Scores{Document: 0.9, GPS: 0.9, CrossReference: 0.9, Spatial: 0.95}, true, false)

		assert.InDelta(t, 0.915, out.OverallConfidence, 1e-9)
		assert.Equal(t, models.ConfidenceHigh, out.Level)
		assert.Equal(t, RecommendAutoApprove, out.Recommendation)
	})

	t.Run("critical overlap forces human review regardless of score", func(t *testing.T) {
		out := Aggregate(Scores{Document: 0.2, GPS: 0.3, CrossReference: 0.1, Spatial: 0.2}, true, true)

		assert.Equal(t, models.ConfidenceMedium, out.Level)
		assert.Equal(t, RecommendHumanReview, out.Recommendation)
		assert.True(t, out.HITLOverride)
	})

	t.Run("override flag stays unset when score already lands in review band", func(t *testing.T) {
		out := Aggregate(Scores{Document: 0.7, GPS: 0.7, CrossReference: 0.7, Spatial: 0.7}, true, true)

		assert.Equal(t, RecommendHumanReview, out.Recommendation)
		assert.False(t, out.HITLOverride)
	})
}

func TestAggregate_Thresholds(t *testing.T) {
	cases := []struct {
		name    string
		overall float64
		level   models.ConfidenceLevel
		rec     Recommendation
	}{
		{"at auto-approve boundary", 0.85, models.ConfidenceHigh, RecommendAutoApprove},
		{"just below auto-approve", 0.8499, models.ConfidenceMedium, RecommendHumanReview},
		{"at review boundary", 0.60, models.ConfidenceMedium, RecommendHumanReview},
		{"just below review boundary", 0.5999, models.ConfidenceLow, RecommendReject},
		{"zero", 0, models.ConfidenceLow, RecommendReject},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Without a polygon the spatial weight is zero, so drive the
			// overall score through the three weighted agents alone.
			out := Aggregate(Scores{Document: tc.overall, GPS: tc.overall, CrossReference: tc.overall}, false, false)

			assert.InDelta(t, tc.overall, out.OverallConfidence, 1e-9)
			assert.Equal(t, tc.level, out.Level)
			assert.Equal(t, tc.rec, out.Recommendation)
		})
	}
}

func TestAggregate_WeightedSumProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for range 1000 {
		scores := Scores{
			Document:       rng.Float64(),
			GPS:            rng.Float64(),
			CrossReference: rng.Float64(),
			Spatial:        rng.Float64(),
		}

		withPolygon := Aggregate(scores, true, false)
		expected := scores.Document*0.25 + scores.GPS*0.25 + scores.CrossReference*0.20 + scores.Spatial*0.30
		assert.InDelta(t, expected, withPolygon.OverallConfidence, 1e-9)

		withoutPolygon := Aggregate(scores, false, false)
		expected = scores.Document*0.35 + scores.GPS*0.35 + scores.CrossReference*0.30
		assert.InDelta(t, expected, withoutPolygon.OverallConfidence, 1e-9)

		// Determinism: same input, same verdict.
		again := Aggregate(scores, true, false)
		assert.Equal(t, withPolygon, again)

		// The weighted sum never leaves the unit interval.
		assert.LessOrEqual(t, withPolygon.OverallConfidence, 1.0+1e-9)
		assert.GreaterOrEqual(t, withPolygon.OverallConfidence, 0.0)
	}
}

func TestAggregate_SpatialWeightIgnoredWithoutPolygon(t *testing.T) {
	base := Scores{Document: 0.8, GPS: 0.8, CrossReference: 0.8, Spatial: 0.1}
	varied := base
	varied.Spatial = 0.9

	a := Aggregate(base, false, false)
	b := Aggregate(varied, false, false)
	assert.True(t, math.Abs(a.OverallConfidence-b.OverallConfidence) < 1e-12,
		"spatial score must not influence claims without a polygon")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, models.StatusAIVerified, StatusFor(RecommendAutoApprove))
	assert.Equal(t, models.StatusPendingHumanReview, StatusFor(RecommendHumanReview))
	assert.Equal(t, models.StatusRejected, StatusFor(RecommendReject))
}
