package verification

import (
	"context"
	"time"

	id "titleguard/pkg/domain"
)

// Run is the immutable audit record of one verification pipeline
// execution. Runs are append-only; re-verifying a claim produces a
// new row rather than mutating an old one.
type Run struct {
	ID                id.RunID
	ClaimID           id.ClaimID
	DocumentScore     float64
	GPSScore          float64
	CrossRefScore     float64
	SpatialScore      float64
	OverallConfidence float64
	Level             string
	Recommendation    Recommendation
	Reasoning         string
	FraudIndicators   []string
	HITLOverride      bool
	CreatedAt         time.Time
}

// RunStore persists verification run records.
type RunStore interface {
	Insert(ctx context.Context, run *Run) error
	ListByClaim(ctx context.Context, claimID id.ClaimID) ([]*Run, error)
}
