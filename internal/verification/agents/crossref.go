package agents

import (
	"context"
	"fmt"
	"time"

	"titleguard/internal/claims/models"
	claimstore "titleguard/internal/claims/store"
	"titleguard/internal/spatial"
	"titleguard/internal/verification"
)

// Per-duplicate confidence penalty and the floor under it.
const (
	duplicatePenalty   = 0.2
	crossRefScoreFloor = 0.1
)

// CrossRefAgent counts records that look like duplicates of the candidate
// claim and converts the count into a confidence score.
type CrossRefAgent struct {
	claims claimstore.Store
}

func NewCrossRefAgent(claims claimstore.Store) *CrossRefAgent {
	return &CrossRefAgent{claims: claims}
}

func (a *CrossRefAgent) Kind() verification.AgentKind {
	return verification.AgentCrossReference
}

func (a *CrossRefAgent) Execute(ctx context.Context, claim *models.Claim) verification.Result {
	start := time.Now()

	count, err := a.claims.CountNearDuplicates(ctx, claim, spatial.PreflightDegreeDelta)
	if err != nil {
		return verification.Failed(verification.AgentCrossReference,
			fmt.Sprintf("counting near duplicates: %v", err), time.Since(start))
	}

	score := 1.0 - duplicatePenalty*float64(count)
	if score < crossRefScoreFloor {
		score = crossRefScoreFloor
	}

	return verification.Result{
		Kind:     verification.AgentCrossReference,
		Success:  true,
		Score:    score,
		Details:  []string{fmt.Sprintf("%d near-duplicate record(s) found", count)},
		Duration: time.Since(start),
	}
}
