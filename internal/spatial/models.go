// Package spatial detects geometric and identity risk between land claims:
// the cheap pre-flight proximity filter, the polygon overlap resolver, and
// grantor risk profiling.
package spatial

import (
	"time"

	id "titleguard/pkg/domain"
)

// Severity classifies how much of the candidate parcel an existing claim covers.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Overlap percentage cutoffs for severity classification.
const (
	criticalOverlapPct = 50.0
	highOverlapPct     = 20.0
	mediumOverlapPct   = 5.0

	// reportingThresholdPct is the minimum overlap that creates a
	// SpatialConflict record.
	reportingThresholdPct = 5.0
)

// classifySeverity buckets an overlap percentage.
func classifySeverity(pct float64) Severity {
	switch {
	case pct >= criticalOverlapPct:
		return SeverityCritical
	case pct >= highOverlapPct:
		return SeverityHigh
	case pct >= mediumOverlapPct:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ConflictStatus is the human-review lifecycle of a recorded conflict.
type ConflictStatus string

const (
	ConflictPendingReview      ConflictStatus = "PENDING_REVIEW"
	ConflictUnderInvestigation ConflictStatus = "UNDER_INVESTIGATION"
	ConflictResolvedValid      ConflictStatus = "RESOLVED_VALID"
	ConflictResolvedInvalid    ConflictStatus = "RESOLVED_INVALID"
	ConflictDisputed           ConflictStatus = "DISPUTED"
)

// IsValid reports whether s is a known conflict status.
func (s ConflictStatus) IsValid() bool {
	switch s {
	case ConflictPendingReview, ConflictUnderInvestigation,
		ConflictResolvedValid, ConflictResolvedInvalid, ConflictDisputed:
		return true
	}
	return false
}

// Resolution reports whether s is a reviewer-assignable terminal-ish state.
func (s ConflictStatus) Resolution() bool {
	switch s {
	case ConflictUnderInvestigation, ConflictResolvedValid,
		ConflictResolvedInvalid, ConflictDisputed:
		return true
	}
	return false
}

// Conflict records a detected overlap between two distinct claims. Created by
// the resolver; mutated only by human reviewers; never auto-deleted.
type Conflict struct {
	ID                 id.ConflictID
	ClaimID            id.ClaimID
	ConflictingClaimID id.ClaimID
	OverlapArea        float64
	OverlapPercentage  float64
	Severity           Severity
	Status             ConflictStatus
	ReviewedBy         *id.UserID
	ResolutionNotes    string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RiskLevel grades grantor history (and overall classifications elsewhere).
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Classification summarizes the geometric outcome for the spatial agent score.
type Classification string

const (
	ClassificationNone             Classification = "NONE"
	ClassificationPotentialDispute Classification = "POTENTIAL_DISPUTE"
	ClassificationHighRisk         Classification = "HIGH_RISK"
)

// Assessment is the spatial resolver's full verdict for one candidate claim.
type Assessment struct {
	Classification Classification
	Conflicts      []Conflict
	MaxSeverity    Severity
	GrantorRisk    RiskLevel
	RequiresHITL   bool
}
