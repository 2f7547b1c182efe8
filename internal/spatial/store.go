package spatial

import (
	"context"
	"time"

	id "titleguard/pkg/domain"
)

// ConflictStore persists detected spatial conflicts.
type ConflictStore interface {
	// Upsert creates the conflict for its claim pair, or refreshes the overlap
	// numbers on the existing record without touching reviewer fields.
	Upsert(ctx context.Context, conflict *Conflict) error

	// Get returns the conflict or sentinel.ErrNotFound.
	Get(ctx context.Context, conflictID id.ConflictID) (*Conflict, error)

	// ListByClaim returns conflicts involving the claim on either side.
	ListByClaim(ctx context.Context, claimID id.ClaimID) ([]*Conflict, error)

	// ListDisputedClaimIDs returns claim IDs appearing in DISPUTED conflicts,
	// for grantor risk profiling.
	ListDisputedClaimIDs(ctx context.Context) ([]id.ClaimID, error)

	// UpdateResolution applies a reviewer decision to a conflict.
	UpdateResolution(ctx context.Context, conflictID id.ConflictID, status ConflictStatus, reviewer id.UserID, notes string, at time.Time) error
}
