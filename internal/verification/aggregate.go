package verification

import (
	"titleguard/internal/claims/models"
)

// Recommendation is the pipeline's suggested disposition before any human
// action.
type Recommendation string

const (
	RecommendAutoApprove Recommendation = "AUTO_APPROVE"
	RecommendHumanReview Recommendation = "HUMAN_REVIEW"
	RecommendReject      Recommendation = "REJECT"
)

// Scores carries the four agent confidence scores into aggregation.
type Scores struct {
	Document       float64
	GPS            float64
	CrossReference float64
	Spatial        float64
}

// Weighting policy. Fixed at compile time, not tunable at runtime.
type weights struct {
	document, gps, crossReference, spatial float64
}

var (
	weightsWithPolygon    = weights{document: 0.25, gps: 0.25, crossReference: 0.20, spatial: 0.30}
	weightsWithoutPolygon = weights{document: 0.35, gps: 0.35, crossReference: 0.30, spatial: 0}
)

// Classification thresholds on the weighted sum.
const (
	autoApproveThreshold = 0.85
	humanReviewThreshold = 0.60
)

// Outcome is the aggregator's verdict.
type Outcome struct {
	OverallConfidence float64
	Level             models.ConfidenceLevel
	Recommendation    Recommendation

	// HITLOverride marks outcomes forced to MEDIUM/HUMAN_REVIEW by the spatial
	// agent even though the numeric score classified differently. Kept visible
	// so reviewers can see what the score alone would have decided.
	HITLOverride bool
}

// Aggregate combines the four agent scores into an overall confidence, level,
// and recommendation. Pure function; no I/O.
//
// When requiresHITL is set the outcome is forced to MEDIUM/HUMAN_REVIEW even
// if the weighted score falls below the reject threshold. Product has
// confirmed this "never silently reject on conflict" reading for now.
func Aggregate(scores Scores, hasPolygon, requiresHITL bool) Outcome {
	w := weightsWithoutPolygon
	if hasPolygon {
		w = weightsWithPolygon
	}

	overall := scores.Document*w.document +
		scores.GPS*w.gps +
		scores.CrossReference*w.crossReference +
		scores.Spatial*w.spatial

	out := Outcome{OverallConfidence: overall}
	switch {
	case overall >= autoApproveThreshold:
		out.Level = models.ConfidenceHigh
		out.Recommendation = RecommendAutoApprove
	case overall >= humanReviewThreshold:
		out.Level = models.ConfidenceMedium
		out.Recommendation = RecommendHumanReview
	default:
		out.Level = models.ConfidenceLow
		out.Recommendation = RecommendReject
	}

	if requiresHITL && out.Recommendation != RecommendHumanReview {
		out.Level = models.ConfidenceMedium
		out.Recommendation = RecommendHumanReview
		out.HITLOverride = true
	}
	return out
}

// StatusFor maps a recommendation to the claim status the state machine
// persists.
func StatusFor(rec Recommendation) models.VerificationStatus {
	switch rec {
	case RecommendAutoApprove:
		return models.StatusAIVerified
	case RecommendHumanReview:
		return models.StatusPendingHumanReview
	default:
		return models.StatusRejected
	}
}
