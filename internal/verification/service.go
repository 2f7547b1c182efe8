package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"titleguard/internal/billing"
	"titleguard/internal/claims/models"
	claimstore "titleguard/internal/claims/store"
	"titleguard/internal/notify"
	"titleguard/internal/spatial"
	"titleguard/internal/verification/metrics"
	id "titleguard/pkg/domain"
	dErrors "titleguard/pkg/domain-errors"
	"titleguard/pkg/platform/audit"
	"titleguard/pkg/platform/sentinel"
)

// Sentinel-tagged domain errors the handler discriminates on.
var (
	// ErrAlreadyVerified is returned when the claim already carries a
	// terminal-positive status. The call has no side effects.
	ErrAlreadyVerified = dErrors.New(dErrors.CodeBadRequest, "claim already verified")

	// ErrPotentialConflict is the pre-flight short-circuit: an approved claim
	// sits within the proximity box. No agent runs, nothing is charged.
	ErrPotentialConflict = dErrors.New(dErrors.CodeConflict, "potential conflict with an approved claim nearby")
)

// StartResult is the scored outcome returned to the caller after a full
// pipeline run.
type StartResult struct {
	Status            models.VerificationStatus
	OverallConfidence float64
	Level             models.ConfidenceLevel
	Recommendation    Recommendation
	HITLOverride      bool
	Reasoning         string
	FraudIndicators   []string
	Breakdown         map[AgentKind]Result
}

// Service is the claim verification state machine. It owns every status
// transition out of PENDING_VERIFICATION and is the only component allowed
// to write claim status during verification.
type Service struct {
	claims   claimstore.Store
	resolver *spatial.Resolver
	orch     *Orchestrator
	runs     RunStore
	locker   Locker
	ledger   billing.Ledger
	notifier notify.Sender
	emitter  *audit.Emitter
	metrics  *metrics.Metrics
	logger   *slog.Logger

	pipelineTimeout time.Duration
}

func NewService(
	claims claimstore.Store,
	resolver *spatial.Resolver,
	orch *Orchestrator,
	runs RunStore,
	locker Locker,
	ledger billing.Ledger,
	notifier notify.Sender,
	emitter *audit.Emitter,
	m *metrics.Metrics,
	logger *slog.Logger,
	pipelineTimeout time.Duration,
) *Service {
	return &Service{
		claims:          claims,
		resolver:        resolver,
		orch:            orch,
		runs:            runs,
		locker:          locker,
		ledger:          ledger,
		notifier:        notifier,
		emitter:         emitter,
		metrics:         m,
		logger:          logger,
		pipelineTimeout: pipelineTimeout,
	}
}

// StartVerification runs the full pipeline for the owner's claim.
//
// Ordering is deliberate: the cheap checks (ownership, idempotency,
// pre-flight proximity) run before the lock and before any agent, so
// rejected requests consume nothing.
func (s *Service) StartVerification(ctx context.Context, ownerID id.UserID, claimID id.ClaimID) (*StartResult, error) {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading claim")
	}

	if claim.OwnerID != ownerID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "claim belongs to another user")
	}

	switch claim.Status {
	case models.StatusAIVerified, models.StatusApproved:
		return nil, ErrAlreadyVerified
	case models.StatusPendingVerification:
		// proceed
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("claim is not awaiting verification (status %s)", claim.Status))
	}

	conflicting, err := s.resolver.PreflightConflict(ctx, claim)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "pre-flight conflict check")
	}
	if conflicting != nil {
		s.metrics.IncrementPreflightHit()
		s.emitter.Emit(ctx, audit.Event{
			Category: audit.CategoryOperations,
			ClaimID:  claimID,
			ActorID:  ownerID.String(),
			Action:   audit.ActionPreflightConflict,
			Reason:   fmt.Sprintf("approved claim %s within proximity box", conflicting.ID),
		})
		return nil, ErrPotentialConflict
	}

	acquired, err := s.locker.Acquire(ctx, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "acquiring verification lock")
	}
	if !acquired {
		return nil, dErrors.New(dErrors.CodeConflict, "verification already in progress")
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), claimID); err != nil {
			s.logger.WarnContext(ctx, "releasing verification lock failed",
				"claim_id", claimID.String(), "error", err)
		}
	}()

	s.emitter.Emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		ClaimID:  claimID,
		ActorID:  ownerID.String(),
		Action:   audit.ActionVerificationStarted,
	})

	start := time.Now()
	pipelineCtx, cancel := context.WithTimeout(ctx, s.pipelineTimeout)
	results := s.orch.Run(pipelineCtx, claim)
	cancel()

	spatialResult := results[AgentSpatial]
	documentResult := results[AgentDocument]

	outcome := Aggregate(Scores{
		Document:       documentResult.Score,
		GPS:            results[AgentGPS].Score,
		CrossReference: results[AgentCrossReference].Score,
		Spatial:        spatialResult.Score,
	}, claim.HasPolygon(), spatialResult.RequiresHITL)

	// The run consumed the agents regardless of what persistence does next.
	if err := s.ledger.ChargeVerification(ctx, ownerID, claimID); err != nil {
		s.logger.ErrorContext(ctx, "verification charge failed",
			"claim_id", claimID.String(), "owner_id", ownerID.String(), "error", err)
	}

	newStatus := StatusFor(outcome.Recommendation)
	if !models.CanTransition(models.StatusPendingVerification, newStatus) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "computed status not reachable from pending verification")
	}
	reasoning := buildReasoning(results, outcome)

	// Persistence must not be torn apart by a caller disconnect mid-write.
	persistCtx := context.WithoutCancel(ctx)

	if err := s.claims.UpdateStatusFrom(persistCtx, claimID, models.StatusPendingVerification, newStatus); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrPreconditionFailed):
			return nil, dErrors.New(dErrors.CodeConflict, "claim status changed during verification, results discarded")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting verification status")
		}
	}

	if err := s.claims.UpdateVerificationResult(persistCtx, claimID, outcome.OverallConfidence, outcome.Level, documentResult.FraudScore); err != nil {
		s.rollback(persistCtx, claimID, newStatus)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting verification result")
	}

	s.recordRun(persistCtx, claim, results, outcome, reasoning)

	s.metrics.ObservePipeline(string(outcome.Recommendation), time.Since(start))
	s.emitter.Emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		ClaimID:  claimID,
		ActorID:  ownerID.String(),
		Action:   audit.ActionVerificationCompleted,
		Decision: string(outcome.Recommendation),
		Reason:   reasoning,
	})
	go s.notifier.VerificationCompleted(context.WithoutCancel(ctx), ownerID, claimID, string(newStatus), string(outcome.Recommendation))

	return &StartResult{
		Status:            newStatus,
		OverallConfidence: outcome.OverallConfidence,
		Level:             outcome.Level,
		Recommendation:    outcome.Recommendation,
		HITLOverride:      outcome.HITLOverride,
		Reasoning:         reasoning,
		FraudIndicators:   documentResult.FraudIndicators,
		Breakdown:         results,
	}, nil
}

// rollback returns the claim to PENDING_VERIFICATION after a partial
// persistence failure so the owner can run verification again.
func (s *Service) rollback(ctx context.Context, claimID id.ClaimID, from models.VerificationStatus) {
	if err := s.claims.SetStatus(ctx, claimID, models.StatusPendingVerification); err != nil {
		s.logger.ErrorContext(ctx, "status rollback failed, claim left inconsistent",
			"claim_id", claimID.String(), "stuck_status", string(from), "error", err)
		return
	}
	s.emitter.Emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		ClaimID:  claimID,
		Action:   audit.ActionStatusRolledBack,
		Reason:   "verification result write failed",
	})
}

// recordRun writes the append-only audit row for this pipeline execution.
// Failure is logged only; the claim's own state is already consistent.
func (s *Service) recordRun(ctx context.Context, claim *models.Claim, results map[AgentKind]Result, outcome Outcome, reasoning string) {
	run := &Run{
		ClaimID:           claim.ID,
		DocumentScore:     results[AgentDocument].Score,
		GPSScore:          results[AgentGPS].Score,
		CrossRefScore:     results[AgentCrossReference].Score,
		SpatialScore:      results[AgentSpatial].Score,
		OverallConfidence: outcome.OverallConfidence,
		Level:             string(outcome.Level),
		Recommendation:    outcome.Recommendation,
		Reasoning:         reasoning,
		FraudIndicators:   results[AgentDocument].FraudIndicators,
		HITLOverride:      outcome.HITLOverride,
	}
	if err := s.runs.Insert(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "verification run record insert failed",
			"claim_id", claim.ID.String(), "error", err)
	}
}

// Runs returns the pipeline history for a claim, newest first.
func (s *Service) Runs(ctx context.Context, claimID id.ClaimID) ([]*Run, error) {
	return s.runs.ListByClaim(ctx, claimID)
}

func buildReasoning(results map[AgentKind]Result, outcome Outcome) string {
	var b strings.Builder
	for _, kind := range AllAgentKinds {
		r := results[kind]
		if r.Success {
			fmt.Fprintf(&b, "%s: %.2f", kind, r.Score)
		} else {
			fmt.Fprintf(&b, "%s: failed (%s)", kind, r.Err)
		}
		b.WriteString("; ")
	}
	fmt.Fprintf(&b, "overall %.3f -> %s", outcome.OverallConfidence, outcome.Recommendation)
	if outcome.HITLOverride {
		b.WriteString(" (forced to human review by spatial risk)")
	}
	return b.String()
}
