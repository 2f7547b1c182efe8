package claimstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titleguard/internal/claims/models"
	id "titleguard/pkg/domain"
	"titleguard/pkg/platform/sentinel"
)

func seedClaim(t *testing.T, store *InMemory, claim *models.Claim) *models.Claim {
	t.Helper()
	if claim.ID.IsNil() {
		claim.ID = id.NewClaimID()
	}
	if claim.OwnerID.IsNil() {
		claim.OwnerID = id.NewUserID()
	}
	require.NoError(t, store.Create(context.Background(), claim))
	return claim
}

func TestUpdateStatusFrom_CAS(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	claim := seedClaim(t, store, &models.Claim{Status: models.StatusPendingVerification})

	t.Run("matching precondition transitions", func(t *testing.T) {
		err := store.UpdateStatusFrom(ctx, claim.ID, models.StatusPendingVerification, models.StatusAIVerified)
		require.NoError(t, err)

		got, err := store.Get(ctx, claim.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAIVerified, got.Status)
	})

	t.Run("stale precondition fails without writing", func(t *testing.T) {
		err := store.UpdateStatusFrom(ctx, claim.ID, models.StatusPendingVerification, models.StatusRejected)
		assert.ErrorIs(t, err, sentinel.ErrPreconditionFailed)

		got, err := store.Get(ctx, claim.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAIVerified, got.Status)
	})

	t.Run("unknown claim", func(t *testing.T) {
		err := store.UpdateStatusFrom(ctx, id.NewClaimID(), models.StatusPendingVerification, models.StatusAIVerified)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestApplyReview(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	reviewer := id.NewUserID()
	now := time.Now().UTC()

	claim := seedClaim(t, store, &models.Claim{Status: models.StatusPendingHumanReview})

	require.NoError(t, store.ApplyReview(ctx, claim.ID, models.StatusApproved, reviewer, "checked site records", now))

	got, err := store.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, reviewer, *got.ReviewedBy)
	assert.Equal(t, "checked site records", got.ReviewNotes)
	require.NotNil(t, got.ReviewedAt)
	assert.True(t, got.ReviewedAt.Equal(now))

	// A second review finds the claim out of the reviewable state.
	err = store.ApplyReview(ctx, claim.ID, models.StatusRejected, reviewer, "", now)
	assert.ErrorIs(t, err, sentinel.ErrPreconditionFailed)
}

func TestListApprovedNear(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	inside := seedClaim(t, store, &models.Claim{Lat: 5.6040, Lng: -0.1872, Status: models.StatusApproved})
	seedClaim(t, store, &models.Claim{Lat: 5.6040, Lng: -0.1872, Status: models.StatusPendingVerification})
	seedClaim(t, store, &models.Claim{Lat: 5.7000, Lng: -0.1872, Status: models.StatusApproved})
	aiVerified := seedClaim(t, store, &models.Claim{Lat: 5.6035, Lng: -0.1865, Status: models.StatusAIVerified})

	got, err := store.ListApprovedNear(ctx, 5.6037, -0.1870, 0.001, id.NewClaimID())
	require.NoError(t, err)

	ids := make(map[id.ClaimID]bool)
	for _, c := range got {
		ids[c.ID] = true
	}
	assert.Len(t, got, 2, "approved and AI-verified neighbours count, pending and distant ones do not")
	assert.True(t, ids[inside.ID])
	assert.True(t, ids[aiVerified.ID], "AI_VERIFIED is approve-equivalent")
}

func TestListApprovedNear_ExcludesSelf(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	claim := seedClaim(t, store, &models.Claim{Lat: 5.6040, Lng: -0.1872, Status: models.StatusApproved})

	got, err := store.ListApprovedNear(ctx, claim.Lat, claim.Lng, 0.001, claim.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCountNearDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	claim := seedClaim(t, store, &models.Claim{
		Lat: 5.6037, Lng: -0.1870,
		GrantorName: "Kofi Mensah",
		Status:      models.StatusPendingVerification,
	})

	// Same spot, different grantor.
	seedClaim(t, store, &models.Claim{Lat: 5.6037, Lng: -0.1870, GrantorName: "Ama Serwaa", Status: models.StatusPendingVerification})
	// Far away, same grantor.
	seedClaim(t, store, &models.Claim{Lat: 7.0, Lng: -2.0, GrantorName: "Kofi Mensah", Status: models.StatusPendingVerification})
	// Far away, different grantor.
	seedClaim(t, store, &models.Claim{Lat: 7.5, Lng: -2.5, GrantorName: "Adwoa Boateng", Status: models.StatusPendingVerification})

	count, err := store.CountNearDuplicates(ctx, claim, 0.001)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	claim := seedClaim(t, store, &models.Claim{GrantorName: "Kofi Mensah", Status: models.StatusPendingVerification})

	got, err := store.Get(ctx, claim.ID)
	require.NoError(t, err)
	got.GrantorName = "mutated"

	again, err := store.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kofi Mensah", again.GrantorName, "callers must not share store state")
}

func TestListByOwnerFiltersStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	owner := id.NewUserID()

	pending := seedClaim(t, store, &models.Claim{OwnerID: owner, Status: models.StatusPendingHumanReview})
	seedClaim(t, store, &models.Claim{OwnerID: owner, Status: models.StatusApproved})
	seedClaim(t, store, &models.Claim{Status: models.StatusPendingHumanReview})

	got, err := store.ListByOwner(ctx, owner, models.StatusPendingHumanReview)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
}
