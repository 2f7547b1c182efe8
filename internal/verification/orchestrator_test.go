package verification

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titleguard/internal/claims/models"
	id "titleguard/pkg/domain"
)

type stubAgent struct {
	kind    AgentKind
	execute func(ctx context.Context, claim *models.Claim) Result
}

func (a stubAgent) Kind() AgentKind { return a.kind }

func (a stubAgent) Execute(ctx context.Context, claim *models.Claim) Result {
	return a.execute(ctx, claim)
}

func scoringAgent(kind AgentKind, score float64) Agent {
	return stubAgent{kind: kind, execute: func(context.Context, *models.Claim) Result {
		return Result{Kind: kind, Success: true, Score: score}
	}}
}

func testClaim() *models.Claim {
	return &models.Claim{
		ID:      id.NewClaimID(),
		OwnerID: id.NewUserID(),
		Lat:     5.6037,
		Lng:     -0.1870,
		Status:  models.StatusPendingVerification,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestOrchestrator_CollectsAllAgents(t *testing.T) {
	orch := NewOrchestrator([]Agent{
		scoringAgent(AgentDocument, 0.9),
		scoringAgent(AgentGPS, 0.8),
		scoringAgent(AgentCrossReference, 0.7),
		scoringAgent(AgentSpatial, 0.6),
	}, time.Second, nil, discardLogger())

	results := orch.Run(context.Background(), testClaim())

	require.Len(t, results, 4)
	assert.Equal(t, 0.9, results[AgentDocument].Score)
	assert.Equal(t, 0.8, results[AgentGPS].Score)
	assert.Equal(t, 0.7, results[AgentCrossReference].Score)
	assert.Equal(t, 0.6, results[AgentSpatial].Score)
	for kind, r := range results {
		assert.True(t, r.Success, "agent %s", kind)
	}
}

func TestOrchestrator_PanickedAgentFailsAlone(t *testing.T) {
	orch := NewOrchestrator([]Agent{
		scoringAgent(AgentDocument, 0.9),
		stubAgent{kind: AgentGPS, execute: func(context.Context, *models.Claim) Result {
			panic("boom")
		}},
	}, time.Second, nil, discardLogger())

	results := orch.Run(context.Background(), testClaim())

	require.Len(t, results, 2)
	assert.True(t, results[AgentDocument].Success)

	gps := results[AgentGPS]
	assert.False(t, gps.Success)
	assert.Zero(t, gps.Score)
	assert.Contains(t, gps.Err, "panic")
}

func TestOrchestrator_TimedOutAgentFailsAlone(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	orch := NewOrchestrator([]Agent{
		scoringAgent(AgentDocument, 0.9),
		stubAgent{kind: AgentSpatial, execute: func(context.Context, *models.Claim) Result {
			<-release
			return Result{Kind: AgentSpatial, Success: true, Score: 1}
		}},
	}, 20*time.Millisecond, nil, discardLogger())

	start := time.Now()
	results := orch.Run(context.Background(), testClaim())

	assert.Less(t, time.Since(start), 5*time.Second, "stuck agent must not block the join")
	assert.True(t, results[AgentDocument].Success, "healthy sibling unaffected")

	spatial := results[AgentSpatial]
	assert.False(t, spatial.Success)
	assert.Zero(t, spatial.Score)
	assert.Contains(t, spatial.Err, "timed out")
}
