package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titleguard/internal/billing"
	"titleguard/internal/claims/models"
	claimstore "titleguard/internal/claims/store"
	"titleguard/internal/docintel"
	"titleguard/internal/notify"
	"titleguard/internal/spatial"
	"titleguard/internal/verification"
	"titleguard/internal/verification/agents"
	"titleguard/internal/verification/runstore"
	id "titleguard/pkg/domain"
	"titleguard/pkg/platform/audit"
	"titleguard/pkg/testutil"
)

type fixture struct {
	router *chi.Mux
	claims *claimstore.InMemory
	owner  id.UserID
	claim  *models.Claim
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	claims := claimstore.NewMemory()
	conflicts := spatial.NewMemoryConflicts()
	grantor := spatial.NewGrantorProfiler(claims, conflicts, logger)
	resolver := spatial.NewResolver(claims, conflicts, grantor, logger)

	// Disabled analyzer: the document agent scores a neutral 0.5.
	analyzer := docintel.New(docintel.Config{})

	orch := verification.NewOrchestrator([]verification.Agent{
		agents.NewDocumentAgent(analyzer),
		agents.NewGPSAgent(),
		agents.NewCrossRefAgent(claims),
		agents.NewSpatialAgent(resolver),
	}, time.Second, nil, logger)

	service := verification.NewService(
		claims, resolver, orch, runstore.NewInMemory(), verification.NewMemoryLocker(),
		billing.NewMemoryLedger(), notify.NewLogSender(logger),
		audit.NewEmitter(64, logger), nil, logger, 5*time.Second,
	)

	owner := id.NewUserID()
	claim := &models.Claim{
		ID:      id.NewClaimID(),
		OwnerID: owner,
		Lat:     5.6037,
		Lng:     -0.1870,
		Status:  models.StatusPendingVerification,
	}
	require.NoError(t, claims.Create(context.Background(), claim))

	r := chi.NewRouter()
	New(service, analyzer, logger).RegisterRoutes(r)

	return &fixture{router: r, claims: claims, owner: owner, claim: claim}
}

func (f *fixture) verify(t *testing.T, asUser id.UserID, claimID string) *verifyResponse {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/claims/"+claimID+"/verify", nil)
	req = testutil.WithUser(req, asUser)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	return testutil.UnmarshalResponse[verifyResponse](t, rr)
}

func TestStartVerification_OK(t *testing.T) {
	f := newFixture(t)

	resp := f.verify(t, f.owner, f.claim.ID.String())

	// Neutral document score plus clean GPS, crossref, and spatial checks put
	// the claim in the human review band.
	assert.Equal(t, string(models.StatusPendingHumanReview), resp.Status)
	assert.Equal(t, "HUMAN_REVIEW", resp.Recommendation)
	assert.Equal(t, "MEDIUM", resp.ConfidenceLevel)
	assert.InDelta(t, 0.8075, resp.Confidence, 1e-6)
	assert.Len(t, resp.Breakdown, 4)
	assert.NotEmpty(t, resp.Reasoning)
}

func TestStartVerification_PotentialConflict(t *testing.T) {
	f := newFixture(t)

	neighbour := &models.Claim{
		ID:      id.NewClaimID(),
		OwnerID: id.NewUserID(),
		Lat:     5.6040,
		Lng:     -0.1872,
		Status:  models.StatusApproved,
	}
	require.NoError(t, f.claims.Create(context.Background(), neighbour))

	req := testutil.NewJSONRequest(t, http.MethodPost, "/claims/"+f.claim.ID.String()+"/verify", nil)
	req = testutil.WithUser(req, f.owner)
	rr := testutil.DoRequest(f.router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "POTENTIAL_CONFLICT")
}

func TestStartVerification_NotOwner(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/claims/"+f.claim.ID.String()+"/verify", nil)
	req = testutil.WithUser(req, id.NewUserID())
	rr := testutil.DoRequest(f.router, req)

	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestStartVerification_NotFound(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/claims/"+id.NewClaimID().String()+"/verify", nil)
	req = testutil.WithUser(req, f.owner)
	rr := testutil.DoRequest(f.router, req)

	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestStartVerification_InvalidClaimID(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/claims/not-a-uuid/verify", nil)
	req = testutil.WithUser(req, f.owner)
	rr := testutil.DoRequest(f.router, req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestStartVerification_AlreadyVerified(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.claims.SetStatus(context.Background(), f.claim.ID, models.StatusAIVerified))

	req := testutil.NewJSONRequest(t, http.MethodPost, "/claims/"+f.claim.ID.String()+"/verify", nil)
	req = testutil.WithUser(req, f.owner)
	rr := testutil.DoRequest(f.router, req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestCapabilities_Disabled(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewRequest(t, http.MethodGet, "/verification/capabilities")
	req = testutil.WithUser(req, f.owner)
	rr := testutil.DoRequest(f.router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[capabilitiesResponse](t, rr)
	assert.False(t, resp.FraudDetection)
	assert.False(t, resp.TamperingDetection)
}
