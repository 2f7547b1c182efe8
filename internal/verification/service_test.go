package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"titleguard/internal/billing"
	"titleguard/internal/claims/models"
	claimstore "titleguard/internal/claims/store"
	"titleguard/internal/notify"
	"titleguard/internal/spatial"
	id "titleguard/pkg/domain"
	dErrors "titleguard/pkg/domain-errors"
	"titleguard/pkg/platform/audit"
)

// failingClaimStore forces the post-CAS result write to fail, exercising the
// rollback branch.
type failingClaimStore struct {
	claimstore.Store
	failResultWrite bool
}

func (s *failingClaimStore) UpdateVerificationResult(ctx context.Context, claimID id.ClaimID, score float64, level models.ConfidenceLevel, fraudScore *float64) error {
	if s.failResultWrite {
		return errors.New("simulated write failure")
	}
	return s.Store.UpdateVerificationResult(ctx, claimID, score, level, fraudScore)
}

type memoryRunStore struct {
	runs []*Run
}

func (s *memoryRunStore) Insert(_ context.Context, run *Run) error {
	s.runs = append(s.runs, run)
	return nil
}

func (s *memoryRunStore) ListByClaim(_ context.Context, claimID id.ClaimID) ([]*Run, error) {
	var out []*Run
	for _, r := range s.runs {
		if r.ClaimID == claimID {
			out = append(out, r)
		}
	}
	return out, nil
}

type ServiceSuite struct {
	suite.Suite

	store   *failingClaimStore
	backing *claimstore.InMemory
	runs    *memoryRunStore
	ledger  *billing.MemoryLedger
	locker  *MemoryLocker

	owner id.UserID
	claim *models.Claim

	agentScores map[AgentKind]float64
	spatialHITL bool
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.backing = claimstore.NewMemory()
	s.store = &failingClaimStore{Store: s.backing}
	s.runs = &memoryRunStore{}
	s.ledger = billing.NewMemoryLedger()
	s.locker = NewMemoryLocker()

	s.owner = id.NewUserID()
	s.claim = &models.Claim{
		ID:          id.NewClaimID(),
		OwnerID:     s.owner,
		Lat:         5.6037,
		Lng:         -0.1870,
		GrantorName: "Nana Owusu II",
		Status:      models.StatusPendingVerification,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	s.Require().NoError(s.backing.Create(context.Background(), s.claim))

	s.agentScores = map[AgentKind]float64{
		AgentDocument:       0.9,
		AgentGPS:            0.9,
		AgentCrossReference: 0.9,
		AgentSpatial:        0.95,
	}
	s.spatialHITL = false
}

func (s *ServiceSuite) newService() *Service {
	logger := discardLogger()

	var agentList []Agent
	for _, kind := range AllAgentKinds {
		score := s.agentScores[kind]
		result := Result{Kind: kind, Success: true, Score: score}
		if kind == AgentSpatial {
			result.RequiresHITL = s.spatialHITL
		}
		agentList = append(agentList, stubAgent{kind: kind, execute: func(context.Context, *models.Claim) Result {
			return result
		}})
	}

	conflicts := spatial.NewMemoryConflicts()
	grantor := spatial.NewGrantorProfiler(s.store, conflicts, logger)
	resolver := spatial.NewResolver(s.store, conflicts, grantor, logger)
	orch := NewOrchestrator(agentList, time.Second, nil, logger)

	return NewService(
		s.store, resolver, orch, s.runs, s.locker,
		s.ledger, notify.NewLogSender(logger),
		audit.NewEmitter(64, logger), nil, logger, 5*time.Second,
	)
}

func (s *ServiceSuite) start() (*StartResult, error) {
	return s.newService().StartVerification(context.Background(), s.owner, s.claim.ID)
}

func (s *ServiceSuite) reload() *models.Claim {
	claim, err := s.backing.Get(context.Background(), s.claim.ID)
	s.Require().NoError(err)
	return claim
}

func (s *ServiceSuite) TestHighScoresAutoApprove() {
	result, err := s.start()
	s.Require().NoError(err)

	s.Equal(models.StatusAIVerified, result.Status)
	s.Equal(RecommendAutoApprove, result.Recommendation)
	s.Equal(models.ConfidenceHigh, result.Level)
	s.Len(result.Breakdown, 4)

	stored := s.reload()
	s.Equal(models.StatusAIVerified, stored.Status)
	s.InDelta(result.OverallConfidence, stored.ConfidenceScore, 1e-9)

	s.Len(s.ledger.Entries(), 1, "pipeline charges exactly once")
	s.Len(s.runs.runs, 1, "pipeline records one run")
}

func (s *ServiceSuite) TestMediumScoresQueueHumanReview() {
	for kind := range s.agentScores {
		s.agentScores[kind] = 0.7
	}

	result, err := s.start()
	s.Require().NoError(err)

	s.Equal(models.StatusPendingHumanReview, result.Status)
	s.Equal(RecommendHumanReview, result.Recommendation)
	s.Equal(models.StatusPendingHumanReview, s.reload().Status)
}

func (s *ServiceSuite) TestLowScoresReject() {
	for kind := range s.agentScores {
		s.agentScores[kind] = 0.2
	}

	result, err := s.start()
	s.Require().NoError(err)

	s.Equal(models.StatusRejected, result.Status)
	s.Equal(RecommendReject, result.Recommendation)
}

func (s *ServiceSuite) TestSpatialHITLForcesReview() {
	s.spatialHITL = true

	result, err := s.start()
	s.Require().NoError(err)

	s.Equal(models.StatusPendingHumanReview, result.Status)
	s.True(result.HITLOverride)
}

func (s *ServiceSuite) TestAlreadyVerifiedHasNoSideEffects() {
	s.Require().NoError(s.backing.SetStatus(context.Background(), s.claim.ID, models.StatusAIVerified))

	_, err := s.start()
	s.Require().ErrorIs(err, ErrAlreadyVerified)

	s.Empty(s.ledger.Entries(), "idempotent rejection must not charge")
	s.Empty(s.runs.runs)
	s.Equal(models.StatusAIVerified, s.reload().Status)
}

func (s *ServiceSuite) TestUnauthorizedForNonOwner() {
	_, err := s.newService().StartVerification(context.Background(), id.NewUserID(), s.claim.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Empty(s.ledger.Entries())
}

func (s *ServiceSuite) TestNotFound() {
	_, err := s.newService().StartVerification(context.Background(), s.owner, id.NewClaimID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestPreflightConflictShortCircuits() {
	// Existing approved claim within 0.001 degrees on both axes.
	neighbour := &models.Claim{
		ID:      id.NewClaimID(),
		OwnerID: id.NewUserID(),
		Lat:     5.6040,
		Lng:     -0.1872,
		Status:  models.StatusApproved,
	}
	s.Require().NoError(s.backing.Create(context.Background(), neighbour))

	_, err := s.start()
	s.Require().ErrorIs(err, ErrPotentialConflict)

	s.Empty(s.ledger.Entries(), "short-circuited pipeline must not charge")
	s.Empty(s.runs.runs, "no agents ran, no run recorded")
	s.Equal(models.StatusPendingVerification, s.reload().Status)
}

func (s *ServiceSuite) TestRollbackOnResultWriteFailure() {
	s.store.failResultWrite = true

	_, err := s.start()
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	s.Equal(models.StatusPendingVerification, s.reload().Status,
		"claim must return to PENDING_VERIFICATION so verification can be retried")

	// Retry succeeds once the fault clears and the claim is back in the
	// runnable state.
	s.store.failResultWrite = false
	result, err := s.start()
	s.Require().NoError(err)
	s.Equal(models.StatusAIVerified, result.Status)
}

func (s *ServiceSuite) TestConcurrentStartLosesLock() {
	ok, err := s.locker.Acquire(context.Background(), s.claim.ID)
	s.Require().NoError(err)
	s.Require().True(ok)

	_, err = s.start()
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Empty(s.ledger.Entries())
}

func (s *ServiceSuite) TestLockReleasedAfterRun() {
	_, err := s.start()
	s.Require().NoError(err)

	ok, err := s.locker.Acquire(context.Background(), s.claim.ID)
	s.Require().NoError(err)
	s.True(ok, "lock must be released when the pipeline finishes")
}

func (s *ServiceSuite) TestRejectedClaimCannotRestart() {
	s.Require().NoError(s.backing.SetStatus(context.Background(), s.claim.ID, models.StatusRejected))

	_, err := s.start()
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.Empty(s.ledger.Entries())
}
