// Package agents holds the four evidence agent implementations consumed by
// the verification orchestrator.
package agents

import (
	"context"
	"fmt"
	"time"

	"titleguard/internal/claims/models"
	"titleguard/internal/docintel"
	"titleguard/internal/verification"
)

// neutralDocumentScore is returned when the document collaborator is not
// configured: the check neither supports nor undermines the claim.
const neutralDocumentScore = 0.5

// DocumentAgent scores the claim's registered document through the document
// intelligence collaborator.
type DocumentAgent struct {
	analyzer docintel.Analyzer
}

func NewDocumentAgent(analyzer docintel.Analyzer) *DocumentAgent {
	return &DocumentAgent{analyzer: analyzer}
}

func (a *DocumentAgent) Kind() verification.AgentKind {
	return verification.AgentDocument
}

func (a *DocumentAgent) Execute(ctx context.Context, claim *models.Claim) verification.Result {
	start := time.Now()

	if !a.analyzer.Enabled() {
		return verification.Result{
			Kind:     verification.AgentDocument,
			Success:  true,
			Score:    neutralDocumentScore,
			Details:  []string{"document analysis not configured, neutral score applied"},
			Duration: time.Since(start),
		}
	}
	if claim.DocumentRef == "" {
		return verification.Result{
			Kind:     verification.AgentDocument,
			Success:  true,
			Score:    neutralDocumentScore,
			Details:  []string{"no document on record, neutral score applied"},
			Duration: time.Since(start),
		}
	}

	analysis, err := a.analyzer.Analyze(ctx, docintel.Request{
		DocumentRef: claim.DocumentRef,
		GrantorName: claim.GrantorName,
		Lat:         claim.Lat,
		Lng:         claim.Lng,
	})
	if err != nil {
		return verification.Failed(verification.AgentDocument,
			fmt.Sprintf("document analysis: %v", err), time.Since(start))
	}

	result := verification.Result{
		Kind:     verification.AgentDocument,
		Success:  true,
		Score:    analysis.Score,
		Details:  analysis.Findings.Notes,
		Duration: time.Since(start),
	}
	fraud := analysis.Findings.FraudScore
	result.FraudScore = &fraud
	if analysis.Findings.TamperingDetected {
		result.FraudIndicators = append(result.FraudIndicators, "tampering detected")
	}
	if fraud >= 0.5 {
		result.FraudIndicators = append(result.FraudIndicators, analysis.Findings.Notes...)
	}
	return result
}
