package agents

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titleguard/internal/claims/models"
	claimstore "titleguard/internal/claims/store"
	"titleguard/internal/docintel"
	"titleguard/internal/spatial"
	"titleguard/internal/verification"
	id "titleguard/pkg/domain"
)

func pendingClaim() *models.Claim {
	return &models.Claim{
		ID:      id.NewClaimID(),
		OwnerID: id.NewUserID(),
		Lat:     5.6037,
		Lng:     -0.1870,
		Status:  models.StatusPendingVerification,
	}
}

func squareAround(lat, lng, half float64) *models.Polygon {
	return &models.Polygon{
		Version: models.PolygonSchemaVersion,
		Vertices: []models.Vertex{
			{Lat: lat - half, Lng: lng - half},
			{Lat: lat - half, Lng: lng + half},
			{Lat: lat + half, Lng: lng + half},
			{Lat: lat + half, Lng: lng - half},
		},
	}
}

func TestGPSAgent(t *testing.T) {
	agent := NewGPSAgent()
	ctx := context.Background()

	t.Run("plausible point scores high", func(t *testing.T) {
		result := agent.Execute(ctx, pendingClaim())
		require.True(t, result.Success)
		assert.Equal(t, 0.95, result.Score)
	})

	t.Run("out of range coordinates score low", func(t *testing.T) {
		claim := pendingClaim()
		claim.Lat = 123.4
		result := agent.Execute(ctx, claim)
		require.True(t, result.Success)
		assert.Equal(t, 0.1, result.Score)
	})

	t.Run("null island is suspicious", func(t *testing.T) {
		claim := pendingClaim()
		claim.Lat, claim.Lng = 0, 0
		result := agent.Execute(ctx, claim)
		assert.Equal(t, 0.3, result.Score)
	})

	t.Run("point inside the polygon is consistent", func(t *testing.T) {
		claim := pendingClaim()
		claim.Polygon = squareAround(claim.Lat, claim.Lng, 0.005)
		result := agent.Execute(ctx, claim)
		assert.Equal(t, 0.95, result.Score)
	})

	t.Run("point far from the polygon is penalized", func(t *testing.T) {
		claim := pendingClaim()
		claim.Polygon = squareAround(claim.Lat+0.5, claim.Lng, 0.005)
		result := agent.Execute(ctx, claim)
		require.True(t, result.Success)
		assert.Equal(t, 0.4, result.Score)
	})
}

func TestCrossRefAgent(t *testing.T) {
	ctx := context.Background()

	newAgent := func(t *testing.T) (*CrossRefAgent, *claimstore.InMemory, *models.Claim) {
		t.Helper()
		store := claimstore.NewMemory()
		claim := pendingClaim()
		claim.GrantorName = "Kofi Mensah"
		require.NoError(t, store.Create(ctx, claim))
		return NewCrossRefAgent(store), store, claim
	}

	t.Run("no duplicates scores full confidence", func(t *testing.T) {
		agent, _, claim := newAgent(t)
		result := agent.Execute(ctx, claim)
		require.True(t, result.Success)
		assert.Equal(t, 1.0, result.Score)
	})

	t.Run("each duplicate costs a fifth", func(t *testing.T) {
		agent, store, claim := newAgent(t)
		dup := pendingClaim()
		dup.Lat, dup.Lng = claim.Lat, claim.Lng
		require.NoError(t, store.Create(ctx, dup))

		result := agent.Execute(ctx, claim)
		assert.InDelta(t, 0.8, result.Score, 1e-9)
	})

	t.Run("score floors at 0.1", func(t *testing.T) {
		agent, store, claim := newAgent(t)
		for range 6 {
			dup := pendingClaim()
			dup.Lat, dup.Lng = claim.Lat, claim.Lng
			require.NoError(t, store.Create(ctx, dup))
		}

		result := agent.Execute(ctx, claim)
		assert.InDelta(t, 0.1, result.Score, 1e-9)
	})
}

type fakeAnalyzer struct {
	analysis *docintel.Analysis
	err      error
}

func (f fakeAnalyzer) Enabled() bool { return true }

func (f fakeAnalyzer) Analyze(context.Context, docintel.Request) (*docintel.Analysis, error) {
	return f.analysis, f.err
}

func TestDocumentAgent(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled analyzer yields neutral score", func(t *testing.T) {
		agent := NewDocumentAgent(docintel.New(docintel.Config{}))
		claim := pendingClaim()
		claim.DocumentRef = "doc-123"

		result := agent.Execute(ctx, claim)
		require.True(t, result.Success)
		assert.Equal(t, 0.5, result.Score)
		assert.Nil(t, result.FraudScore)
	})

	t.Run("missing document yields neutral score", func(t *testing.T) {
		agent := NewDocumentAgent(fakeAnalyzer{})
		result := agent.Execute(ctx, pendingClaim())
		require.True(t, result.Success)
		assert.Equal(t, 0.5, result.Score)
	})

	t.Run("analysis score and fraud findings pass through", func(t *testing.T) {
		agent := NewDocumentAgent(fakeAnalyzer{analysis: &docintel.Analysis{
			Score: 0.3,
			Findings: docintel.Findings{
				FraudScore:        0.8,
				TamperingDetected: true,
				Notes:             []string{"grantor name mismatch"},
			},
		}})
		claim := pendingClaim()
		claim.DocumentRef = "doc-123"

		result := agent.Execute(ctx, claim)
		require.True(t, result.Success)
		assert.Equal(t, 0.3, result.Score)
		require.NotNil(t, result.FraudScore)
		assert.Equal(t, 0.8, *result.FraudScore)
		assert.Contains(t, result.FraudIndicators, "tampering detected")
		assert.Contains(t, result.FraudIndicators, "grantor name mismatch")
	})

	t.Run("analyzer failure becomes a failed result", func(t *testing.T) {
		agent := NewDocumentAgent(fakeAnalyzer{err: errors.New("upstream 500")})
		claim := pendingClaim()
		claim.DocumentRef = "doc-123"

		result := agent.Execute(ctx, claim)
		assert.False(t, result.Success)
		assert.Zero(t, result.Score)
		assert.Contains(t, result.Err, "upstream 500")
	})
}

func TestSpatialAgent(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	newAgent := func(t *testing.T) (*SpatialAgent, *claimstore.InMemory) {
		t.Helper()
		claims := claimstore.NewMemory()
		conflicts := spatial.NewMemoryConflicts()
		grantor := spatial.NewGrantorProfiler(claims, conflicts, logger)
		return NewSpatialAgent(spatial.NewResolver(claims, conflicts, grantor, logger)), claims
	}

	t.Run("clear claim scores the base confidence", func(t *testing.T) {
		agent, claims := newAgent(t)
		claim := pendingClaim()
		require.NoError(t, claims.Create(ctx, claim))

		result := agent.Execute(ctx, claim)
		require.True(t, result.Success)
		assert.Equal(t, 0.95, result.Score)
		assert.False(t, result.RequiresHITL)
		assert.Equal(t, spatial.RiskLow, result.GrantorRisk)
	})

	t.Run("medium grantor risk discounts the base score", func(t *testing.T) {
		agent, claims := newAgent(t)

		rejected := pendingClaim()
		rejected.Lat, rejected.Lng = 7.0, -2.0
		rejected.GrantorName = "Kofi Mensah"
		rejected.Status = models.StatusRejected
		require.NoError(t, claims.Create(ctx, rejected))

		claim := pendingClaim()
		claim.GrantorName = "Kofi Mensah"
		require.NoError(t, claims.Create(ctx, claim))

		result := agent.Execute(ctx, claim)
		require.True(t, result.Success)
		assert.InDelta(t, 0.95*0.75, result.Score, 1e-9)
		assert.True(t, result.RequiresHITL)
		assert.Equal(t, spatial.RiskMedium, result.GrantorRisk)
	})

	t.Run("high grantor risk halves the base score", func(t *testing.T) {
		agent, claims := newAgent(t)

		for _, name := range []string{"Kofi Mensah", "kofi mensah", "Kofi Mensa"} {
			rejected := pendingClaim()
			rejected.Lat, rejected.Lng = 7.0, -2.0
			rejected.GrantorName = name
			rejected.Status = models.StatusRejected
			require.NoError(t, claims.Create(ctx, rejected))
		}

		claim := pendingClaim()
		claim.GrantorName = "Kofi Mensah"
		require.NoError(t, claims.Create(ctx, claim))

		result := agent.Execute(ctx, claim)
		assert.InDelta(t, 0.95*0.5, result.Score, 1e-9)
		assert.Equal(t, spatial.RiskHigh, result.GrantorRisk)
	})

	t.Run("kind is spatial", func(t *testing.T) {
		agent, _ := newAgent(t)
		assert.Equal(t, verification.AgentSpatial, agent.Kind())
	})
}
