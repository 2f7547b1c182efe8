package agents

import (
	"context"
	"fmt"
	"time"

	"titleguard/internal/claims/models"
	"titleguard/internal/spatial"
	"titleguard/internal/verification"
)

// Base confidence by geometric classification, before grantor discounting.
const (
	spatialScoreClear            = 0.95
	spatialScorePotentialDispute = 0.5
	spatialScoreHighRisk         = 0.2
)

// Grantor risk multipliers applied to the base score.
const (
	grantorHighRiskFactor   = 0.5
	grantorMediumRiskFactor = 0.75
)

// SpatialAgent wraps the conflict resolver: it runs the full overlap
// assessment plus grantor profiling and converts the result into a score.
type SpatialAgent struct {
	resolver *spatial.Resolver
}

func NewSpatialAgent(resolver *spatial.Resolver) *SpatialAgent {
	return &SpatialAgent{resolver: resolver}
}

func (a *SpatialAgent) Kind() verification.AgentKind {
	return verification.AgentSpatial
}

func (a *SpatialAgent) Execute(ctx context.Context, claim *models.Claim) verification.Result {
	start := time.Now()

	assessment, err := a.resolver.Assess(ctx, claim)
	if err != nil {
		return verification.Failed(verification.AgentSpatial,
			fmt.Sprintf("spatial assessment: %v", err), time.Since(start))
	}

	score := baseScore(assessment.Classification)
	switch assessment.GrantorRisk {
	case spatial.RiskHigh:
		score *= grantorHighRiskFactor
	case spatial.RiskMedium:
		score *= grantorMediumRiskFactor
	}

	details := []string{
		fmt.Sprintf("classification %s, %d conflict(s), grantor risk %s",
			assessment.Classification, len(assessment.Conflicts), assessment.GrantorRisk),
	}
	for _, c := range assessment.Conflicts {
		details = append(details, fmt.Sprintf("overlap %.1f%% with claim %s (%s)",
			c.OverlapPercentage, c.ConflictingClaimID, c.Severity))
	}

	return verification.Result{
		Kind:         verification.AgentSpatial,
		Success:      true,
		Score:        score,
		Details:      details,
		Duration:     time.Since(start),
		RequiresHITL: assessment.RequiresHITL,
		GrantorRisk:  assessment.GrantorRisk,
	}
}

func baseScore(c spatial.Classification) float64 {
	switch c {
	case spatial.ClassificationHighRisk:
		return spatialScoreHighRisk
	case spatial.ClassificationPotentialDispute:
		return spatialScorePotentialDispute
	default:
		return spatialScoreClear
	}
}
