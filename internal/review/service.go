// Package review is the human side of the verification engine: the review
// queue, reviewer decisions on inconclusive claims, and resolution of
// recorded spatial conflicts.
package review

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"titleguard/internal/claims/models"
	claimstore "titleguard/internal/claims/store"
	"titleguard/internal/spatial"
	id "titleguard/pkg/domain"
	dErrors "titleguard/pkg/domain-errors"
	"titleguard/pkg/platform/audit"
	"titleguard/pkg/platform/sentinel"
	"titleguard/pkg/requestcontext"
)

// Action is a reviewer's decision on a claim.
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
)

const maxNotesLength = 2000

// Service executes reviewer decisions. Role checks live here rather than in
// the handler so every caller gets the same gate.
type Service struct {
	claims    claimstore.Store
	conflicts spatial.ConflictStore
	sanitizer *bluemonday.Policy
	emitter   *audit.Emitter
	logger    *slog.Logger
}

func NewService(claims claimstore.Store, conflicts spatial.ConflictStore, emitter *audit.Emitter, logger *slog.Logger) *Service {
	return &Service{
		claims:    claims,
		conflicts: conflicts,
		sanitizer: bluemonday.StrictPolicy(),
		emitter:   emitter,
		logger:    logger,
	}
}

// ListPendingReview returns the review queue. Reviewers see every claim
// awaiting human review; other users see only their own.
func (s *Service) ListPendingReview(ctx context.Context) ([]*models.Claim, error) {
	if requestcontext.HasRole(ctx, requestcontext.RoleReviewer) {
		return s.claims.ListByStatus(ctx, models.StatusPendingHumanReview)
	}
	return s.claims.ListByOwner(ctx, requestcontext.UserID(ctx), models.StatusPendingHumanReview)
}

// Review applies a reviewer decision to a claim awaiting human review.
func (s *Service) Review(ctx context.Context, claimID id.ClaimID, action Action, notes string) (*models.Claim, error) {
	if !requestcontext.HasRole(ctx, requestcontext.RoleReviewer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "reviewer role required")
	}

	var to models.VerificationStatus
	switch action {
	case ActionApprove:
		to = models.StatusApproved
	case ActionReject:
		to = models.StatusRejected
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "action must be APPROVE or REJECT")
	}
	if !models.CanTransition(models.StatusPendingHumanReview, to) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "review outcome not reachable from pending review")
	}

	notes, err := s.cleanNotes(notes)
	if err != nil {
		return nil, err
	}

	reviewer := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)

	if err := s.claims.ApplyReview(ctx, claimID, to, reviewer, notes, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		case errors.Is(err, sentinel.ErrPreconditionFailed):
			return nil, dErrors.New(dErrors.CodeBadRequest, "claim is not awaiting human review")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "applying review")
		}
	}

	s.emitter.Emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		ClaimID:  claimID,
		ActorID:  reviewer.String(),
		Action:   audit.ActionClaimReviewed,
		Decision: string(action),
		Reason:   notes,
	})

	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reloading reviewed claim")
	}
	return claim, nil
}

// ResolveConflict applies a reviewer decision to a recorded spatial conflict.
func (s *Service) ResolveConflict(ctx context.Context, conflictID id.ConflictID, status spatial.ConflictStatus, notes string) (*spatial.Conflict, error) {
	if !requestcontext.HasRole(ctx, requestcontext.RoleReviewer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "reviewer role required")
	}
	if !status.Resolution() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid conflict resolution status")
	}

	notes, err := s.cleanNotes(notes)
	if err != nil {
		return nil, err
	}

	reviewer := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)

	if err := s.conflicts.UpdateResolution(ctx, conflictID, status, reviewer, notes, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "conflict not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolving conflict")
	}

	s.emitter.Emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		ActorID:  reviewer.String(),
		Action:   audit.ActionConflictResolved,
		Decision: string(status),
		Reason:   notes,
	})

	conflict, err := s.conflicts.Get(ctx, conflictID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reloading resolved conflict")
	}
	return conflict, nil
}

// cleanNotes strips markup from reviewer notes and enforces the length cap.
// Notes end up in legal audit trails, so raw HTML never gets through.
func (s *Service) cleanNotes(notes string) (string, error) {
	notes = strings.TrimSpace(s.sanitizer.Sanitize(notes))
	if len(notes) > maxNotesLength {
		return "", dErrors.New(dErrors.CodeValidation, "notes exceed the maximum length")
	}
	return notes, nil
}
