// Package verification is the claim verification engine: the evidence agent
// contract, the concurrent orchestrator, the confidence aggregator, and the
// status state machine that drives a claim from PENDING_VERIFICATION to a
// scored outcome.
package verification

import (
	"context"
	"time"

	"titleguard/internal/claims/models"
	"titleguard/internal/spatial"
)

// AgentKind enumerates the fixed set of evidence checks. No reflection, no
// runtime registration: the pipeline always runs exactly these four.
type AgentKind string

const (
	AgentDocument       AgentKind = "document"
	AgentGPS            AgentKind = "gps"
	AgentCrossReference AgentKind = "crossref"
	AgentSpatial        AgentKind = "spatial"
)

// AllAgentKinds lists every kind in reporting order.
var AllAgentKinds = []AgentKind{AgentDocument, AgentGPS, AgentCrossReference, AgentSpatial}

// Result is what every agent returns. Agents never let failures escape their
// boundary: an internal error becomes Success=false, Score=0, Err set.
type Result struct {
	Kind     AgentKind
	Success  bool
	Score    float64
	Details  []string
	Err      string
	Duration time.Duration

	// Spatial agent only.
	RequiresHITL bool
	GrantorRisk  spatial.RiskLevel

	// Document agent only.
	FraudScore      *float64
	FraudIndicators []string
}

// Failed builds the uniform failure result.
func Failed(kind AgentKind, reason string, d time.Duration) Result {
	return Result{Kind: kind, Success: false, Score: 0, Err: reason, Duration: d}
}

// Agent is a single evidence check: a pure function of the claim to a scored
// result. Agents are stateless and safe to call concurrently for different
// claims; same-claim serialization is enforced upstream by the state machine.
type Agent interface {
	Kind() AgentKind
	Execute(ctx context.Context, claim *models.Claim) Result
}
