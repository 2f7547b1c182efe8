package claimstore

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titleguard/internal/claims/models"
	id "titleguard/pkg/domain"
	"titleguard/pkg/platform/sentinel"
)

// Runs against a real database with the migrations applied. Skips unless
// TEST_DATABASE_URL is set.
func postgresStore(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewPostgres(pool)
}

func TestPostgres_CreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := postgresStore(t)

	claim := &models.Claim{
		ID:          id.NewClaimID(),
		OwnerID:     id.NewUserID(),
		Lat:         5.6037,
		Lng:         -0.1870,
		GrantorName: "Kofi Mensah",
		Status:      models.StatusPendingVerification,
	}
	require.NoError(t, store.Create(ctx, claim))

	got, err := store.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, claim.ID, got.ID)
	assert.Equal(t, claim.OwnerID, got.OwnerID)
	assert.Equal(t, "Kofi Mensah", got.GrantorName)
	assert.Equal(t, models.StatusPendingVerification, got.Status)
}

func TestPostgres_UpdateStatusFromCAS(t *testing.T) {
	ctx := context.Background()
	store := postgresStore(t)

	claim := &models.Claim{
		ID:      id.NewClaimID(),
		OwnerID: id.NewUserID(),
		Status:  models.StatusPendingVerification,
	}
	require.NoError(t, store.Create(ctx, claim))

	require.NoError(t, store.UpdateStatusFrom(ctx, claim.ID, models.StatusPendingVerification, models.StatusAIVerified))

	err := store.UpdateStatusFrom(ctx, claim.ID, models.StatusPendingVerification, models.StatusRejected)
	assert.ErrorIs(t, err, sentinel.ErrPreconditionFailed)

	err = store.UpdateStatusFrom(ctx, id.NewClaimID(), models.StatusPendingVerification, models.StatusAIVerified)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
