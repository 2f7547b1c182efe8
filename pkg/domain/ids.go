// Package domain defines identifier primitives shared across modules.
// IDs are distinct types over uuid.UUID so the compiler rejects cross-entity
// assignment; parsing enforces validity at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "titleguard/pkg/domain-errors"
)

type (
	// UserID identifies an account (claim owner or reviewer).
	UserID uuid.UUID
	// ClaimID identifies a land claim.
	ClaimID uuid.UUID
	// ConflictID identifies a recorded spatial conflict.
	ConflictID uuid.UUID
	// RunID identifies a verification pipeline execution.
	RunID uuid.UUID
)

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return u, nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user id", s)
	return UserID(u), err
}

// ParseClaimID validates and returns a ClaimID.
func ParseClaimID(s string) (ClaimID, error) {
	u, err := parseUUID("claim id", s)
	return ClaimID(u), err
}

// ParseConflictID validates and returns a ConflictID.
func ParseConflictID(s string) (ConflictID, error) {
	u, err := parseUUID("conflict id", s)
	return ConflictID(u), err
}

// ParseRunID validates and returns a RunID.
func ParseRunID(s string) (RunID, error) {
	u, err := parseUUID("run id", s)
	return RunID(u), err
}

// NewClaimID returns a fresh random ClaimID.
func NewClaimID() ClaimID { return ClaimID(uuid.New()) }

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewConflictID returns a fresh random ConflictID.
func NewConflictID() ConflictID { return ConflictID(uuid.New()) }

// NewRunID returns a fresh random RunID.
func NewRunID() RunID { return RunID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id ClaimID) String() string    { return uuid.UUID(id).String() }
func (id ConflictID) String() string { return uuid.UUID(id).String() }
func (id RunID) String() string      { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ConflictID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RunID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
