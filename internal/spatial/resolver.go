package spatial

import (
	"context"
	"log/slog"
	"time"

	"titleguard/internal/claims/models"
	claimstore "titleguard/internal/claims/store"
	id "titleguard/pkg/domain"
)

// PreflightDegreeDelta is the half-width of the pre-flight bounding box in
// degrees, roughly 111 m at the equator. The approximation degrades with
// latitude; a great-circle check is pending product confirmation.
const PreflightDegreeDelta = 0.001

// Resolver is the two-tier spatial risk check: a cheap coordinate proximity
// prefilter and the full polygon overlap assessment.
type Resolver struct {
	claims    claimstore.Store
	conflicts ConflictStore
	grantor   *GrantorProfiler
	logger    *slog.Logger
}

func NewResolver(claims claimstore.Store, conflicts ConflictStore, grantor *GrantorProfiler, logger *slog.Logger) *Resolver {
	return &Resolver{
		claims:    claims,
		conflicts: conflicts,
		grantor:   grantor,
		logger:    logger,
	}
}

// PreflightConflict returns the first approve-equivalent claim within
// ±PreflightDegreeDelta of the candidate's point, or nil when the area is
// clear. This runs before any agent starts and short-circuits the pipeline.
func (r *Resolver) PreflightConflict(ctx context.Context, claim *models.Claim) (*models.Claim, error) {
	nearby, err := r.claims.ListApprovedNear(ctx, claim.Lat, claim.Lng, PreflightDegreeDelta, claim.ID)
	if err != nil {
		return nil, err
	}
	if len(nearby) == 0 {
		return nil, nil
	}
	return nearby[0], nil
}

// Assess runs the full spatial check: polygon overlap against every claim on
// record with a boundary, conflict recording, and grantor risk. Callable
// without a polygon; only the overlap tier is skipped then.
func (r *Resolver) Assess(ctx context.Context, claim *models.Claim) (*Assessment, error) {
	assessment := &Assessment{
		Classification: ClassificationNone,
		GrantorRisk:    RiskLow,
	}

	if claim.HasPolygon() {
		if err := r.assessOverlaps(ctx, claim, assessment); err != nil {
			return nil, err
		}
	}

	risk, err := r.grantor.RiskLevel(ctx, claim.GrantorName)
	if err != nil {
		return nil, err
	}
	assessment.GrantorRisk = risk

	assessment.RequiresHITL = assessment.MaxSeverity == SeverityHigh ||
		assessment.MaxSeverity == SeverityCritical ||
		risk != RiskLow

	return assessment, nil
}

func (r *Resolver) assessOverlaps(ctx context.Context, claim *models.Claim, assessment *Assessment) error {
	others, err := r.claims.ListPolygonClaims(ctx, claim.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, other := range others {
		area, pct := overlap(claim.Polygon, other.Polygon)
		if pct < reportingThresholdPct {
			continue
		}

		severity := classifySeverity(pct)
		conflict := Conflict{
			ID:                 id.NewConflictID(),
			ClaimID:            claim.ID,
			ConflictingClaimID: other.ID,
			OverlapArea:        area,
			OverlapPercentage:  pct,
			Severity:           severity,
			Status:             ConflictPendingReview,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := r.conflicts.Upsert(ctx, &conflict); err != nil {
			return err
		}

		assessment.Conflicts = append(assessment.Conflicts, conflict)
		if severityRank(severity) > severityRank(assessment.MaxSeverity) {
			assessment.MaxSeverity = severity
		}

		r.logger.InfoContext(ctx, "spatial conflict recorded",
			"claim_id", claim.ID,
			"conflicting_claim_id", other.ID,
			"overlap_pct", pct,
			"severity", severity,
		)
	}

	switch {
	case assessment.MaxSeverity == SeverityHigh || assessment.MaxSeverity == SeverityCritical:
		assessment.Classification = ClassificationHighRisk
	case len(assessment.Conflicts) > 0:
		assessment.Classification = ClassificationPotentialDispute
	}
	return nil
}

func severityRank(s Severity) int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}
