// Package claimstore persists land claims. The verification state machine is
// the only writer of claim status; it relies on UpdateStatusFrom's conditional
// write to stay race-safe under concurrent verification starts.
package claimstore

import (
	"context"
	"time"

	"titleguard/internal/claims/models"
	id "titleguard/pkg/domain"
)

// Store is the claim repository consumed by the verification engine, the
// spatial resolver, and the human review workflow.
type Store interface {
	Create(ctx context.Context, claim *models.Claim) error

	// Get returns the claim or sentinel.ErrNotFound.
	Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)

	// ListApprovedNear returns approve-equivalent claims whose point lies
	// within ±delta degrees of (lat, lng) on both axes, excluding exclude.
	ListApprovedNear(ctx context.Context, lat, lng, delta float64, exclude id.ClaimID) ([]*models.Claim, error)

	// ListPolygonClaims returns every claim carrying a polygon, excluding exclude.
	ListPolygonClaims(ctx context.Context, exclude id.ClaimID) ([]*models.Claim, error)

	// ListByStatus returns all claims in the given status.
	ListByStatus(ctx context.Context, status models.VerificationStatus) ([]*models.Claim, error)

	// ListByOwner returns the owner's claims, optionally filtered by status.
	ListByOwner(ctx context.Context, ownerID id.UserID, statuses ...models.VerificationStatus) ([]*models.Claim, error)

	// ListGrantorHistory returns grantor names from rejected claims, for risk
	// profiling.
	ListGrantorHistory(ctx context.Context) ([]models.GrantorRecord, error)

	// CountNearDuplicates counts other claims that look like duplicates of the
	// given one: point within ±delta degrees or identical grantor name.
	CountNearDuplicates(ctx context.Context, claim *models.Claim, delta float64) (int, error)

	// UpdateStatusFrom performs the compare-and-transition write: the status
	// changes to `to` only if it currently equals `from`. Returns
	// sentinel.ErrPreconditionFailed otherwise, sentinel.ErrNotFound when the
	// claim does not exist.
	UpdateStatusFrom(ctx context.Context, claimID id.ClaimID, from, to models.VerificationStatus) error

	// UpdateVerificationResult writes the scored outcome fields.
	UpdateVerificationResult(ctx context.Context, claimID id.ClaimID, score float64, level models.ConfidenceLevel, fraudScore *float64) error

	// SetStatus writes the status unconditionally. Reserved for the state
	// machine's rollback branch.
	SetStatus(ctx context.Context, claimID id.ClaimID, status models.VerificationStatus) error

	// ApplyReview transitions PENDING_HUMAN_REVIEW to the review outcome and
	// stamps reviewer identity, time, and notes in one conditional write.
	ApplyReview(ctx context.Context, claimID id.ClaimID, to models.VerificationStatus, reviewer id.UserID, notes string, at time.Time) error
}
