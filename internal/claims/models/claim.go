// Package models defines the land claim record and its status lifecycle.
package models

import (
	"time"

	id "titleguard/pkg/domain"
)

// VerificationStatus is the claim's position in the verification lifecycle.
type VerificationStatus string

const (
	StatusPendingVerification VerificationStatus = "PENDING_VERIFICATION"
	StatusAIVerified          VerificationStatus = "AI_VERIFIED"
	StatusRejected            VerificationStatus = "REJECTED"
	StatusPendingHumanReview  VerificationStatus = "PENDING_HUMAN_REVIEW"
	StatusApproved            VerificationStatus = "APPROVED"
)

// transitions is the single authoritative transition table. Status changes
// anywhere in the codebase go through CanTransition; rollback to
// PENDING_VERIFICATION after a persistence failure is the one sanctioned
// exception and is handled by the state machine explicitly.
var transitions = map[VerificationStatus][]VerificationStatus{
	StatusPendingVerification: {StatusAIVerified, StatusRejected, StatusPendingHumanReview},
	StatusPendingHumanReview:  {StatusApproved, StatusRejected},
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to VerificationStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known status value.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusPendingVerification, StatusAIVerified, StatusRejected,
		StatusPendingHumanReview, StatusApproved:
		return true
	}
	return false
}

// IsApproved reports whether the claim reached an approve-equivalent terminal
// state (eligible for downstream minting, and counted by the pre-flight
// proximity filter).
func (s VerificationStatus) IsApproved() bool {
	return s == StatusAIVerified || s == StatusApproved
}

// Terminal reports whether no further automatic transition is possible.
func (s VerificationStatus) Terminal() bool {
	return s == StatusAIVerified || s == StatusApproved || s == StatusRejected
}

// ConfidenceLevel is the coarse bucket derived from the numeric score.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "LOW"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceHigh   ConfidenceLevel = "HIGH"
)

// Claim is the land claim record. Only the verification state machine and the
// human review workflow mutate it; evidence agents read it.
type Claim struct {
	ID          id.ClaimID
	OwnerID     id.UserID
	Lat         float64
	Lng         float64
	Polygon     *Polygon
	GrantorName string
	DocumentRef string

	Status          VerificationStatus
	ConfidenceScore float64
	ConfidenceLevel ConfidenceLevel
	FraudScore      *float64

	ReviewedBy  *id.UserID
	ReviewNotes string
	ReviewedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPolygon reports whether the claim carries a usable boundary polygon.
func (c *Claim) HasPolygon() bool {
	return c.Polygon != nil && len(c.Polygon.Vertices) >= MinPolygonVertices
}

// GrantorRecord pairs a grantor name with the status of the claim it came
// from, for grantor risk profiling.
type GrantorRecord struct {
	GrantorName string
	Status      VerificationStatus
}
