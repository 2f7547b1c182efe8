// Package audit captures key verification and review actions as
// transport-agnostic events so stores and sinks can fan out.
package audit

import (
	"context"
	"time"

	id "titleguard/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This enables
// different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: status
	// transitions, human review decisions, conflict resolutions.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility: pipeline runs, preflight hits, collaborator failures.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	ClaimID   id.ClaimID
	ActorID   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
}

// Well-known actions.
const (
	ActionVerificationStarted   = "verification_started"
	ActionVerificationCompleted = "verification_completed"
	ActionPreflightConflict     = "preflight_conflict"
	ActionStatusRolledBack      = "status_rolled_back"
	ActionClaimReviewed         = "claim_reviewed"
	ActionConflictResolved      = "conflict_resolved"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher delivers audit events to an external sink (e.g. Kafka).
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
