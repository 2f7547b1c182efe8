package claimstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"titleguard/internal/claims/models"
	id "titleguard/pkg/domain"
	"titleguard/pkg/platform/sentinel"
)

// Postgres persists claims in PostgreSQL via pgx. Polygons are stored as the
// versioned JSON document defined in models.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const claimColumns = `id, owner_id, lat, lng, polygon, grantor_name, document_ref,
	verification_status, confidence_score, confidence_level, fraud_score,
	reviewed_by, review_notes, reviewed_at, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, claim *models.Claim) error {
	polygon, err := claim.Polygon.Marshal()
	if err != nil {
		return fmt.Errorf("marshal polygon: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO claims (`+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		uuid.UUID(claim.ID), uuid.UUID(claim.OwnerID), claim.Lat, claim.Lng, polygon,
		claim.GrantorName, claim.DocumentRef, string(claim.Status),
		claim.ConfidenceScore, string(claim.ConfidenceLevel), claim.FraudScore,
		reviewedBy(claim.ReviewedBy), claim.ReviewNotes, claim.ReviewedAt,
		claim.CreatedAt, claim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, uuid.UUID(claimID))
	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return claim, nil
}

func (s *Postgres) ListApprovedNear(ctx context.Context, lat, lng, delta float64, exclude id.ClaimID) ([]*models.Claim, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE verification_status IN ('AI_VERIFIED', 'APPROVED')
		  AND id <> $1
		  AND lat BETWEEN $2 - $4 AND $2 + $4
		  AND lng BETWEEN $3 - $4 AND $3 + $4
		ORDER BY created_at, id`,
		uuid.UUID(exclude), lat, lng, delta,
	)
	if err != nil {
		return nil, fmt.Errorf("list approved near: %w", err)
	}
	return collectClaims(rows)
}

func (s *Postgres) ListPolygonClaims(ctx context.Context, exclude id.ClaimID) ([]*models.Claim, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE polygon IS NOT NULL AND id <> $1
		ORDER BY created_at, id`,
		uuid.UUID(exclude),
	)
	if err != nil {
		return nil, fmt.Errorf("list polygon claims: %w", err)
	}
	return collectClaims(rows)
}

func (s *Postgres) ListByStatus(ctx context.Context, status models.VerificationStatus) ([]*models.Claim, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE verification_status = $1
		ORDER BY created_at, id`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list claims by status: %w", err)
	}
	return collectClaims(rows)
}

func (s *Postgres) ListByOwner(ctx context.Context, ownerID id.UserID, statuses ...models.VerificationStatus) ([]*models.Claim, error) {
	statusStrings := make([]string, len(statuses))
	for i, st := range statuses {
		statusStrings[i] = string(st)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE owner_id = $1
		  AND (cardinality($2::text[]) = 0 OR verification_status = ANY($2))
		ORDER BY created_at, id`,
		uuid.UUID(ownerID), statusStrings,
	)
	if err != nil {
		return nil, fmt.Errorf("list claims by owner: %w", err)
	}
	return collectClaims(rows)
}

func (s *Postgres) ListGrantorHistory(ctx context.Context) ([]models.GrantorRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT grantor_name, verification_status FROM claims
		WHERE verification_status = 'REJECTED' AND grantor_name <> ''`,
	)
	if err != nil {
		return nil, fmt.Errorf("list grantor history: %w", err)
	}
	defer rows.Close()

	var out []models.GrantorRecord
	for rows.Next() {
		var rec models.GrantorRecord
		var status string
		if err := rows.Scan(&rec.GrantorName, &status); err != nil {
			return nil, fmt.Errorf("scan grantor record: %w", err)
		}
		rec.Status = models.VerificationStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Postgres) CountNearDuplicates(ctx context.Context, claim *models.Claim, delta float64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM claims
		WHERE id <> $1
		  AND ((lat BETWEEN $2 - $4 AND $2 + $4 AND lng BETWEEN $3 - $4 AND $3 + $4)
		       OR ($5 <> '' AND lower(grantor_name) = lower($5)))`,
		uuid.UUID(claim.ID), claim.Lat, claim.Lng, delta, claim.GrantorName,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count near duplicates: %w", err)
	}
	return count, nil
}

func (s *Postgres) UpdateStatusFrom(ctx context.Context, claimID id.ClaimID, from, to models.VerificationStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE claims SET verification_status = $3, updated_at = now()
		WHERE id = $1 AND verification_status = $2`,
		uuid.UUID(claimID), string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("conditional status update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing claim from a lost race.
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM claims WHERE id = $1)`, uuid.UUID(claimID)).Scan(&exists); err != nil {
			return fmt.Errorf("check claim existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrPreconditionFailed
	}
	return nil
}

func (s *Postgres) UpdateVerificationResult(ctx context.Context, claimID id.ClaimID, score float64, level models.ConfidenceLevel, fraudScore *float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE claims
		SET confidence_score = $2, confidence_level = $3,
		    fraud_score = COALESCE($4, fraud_score), updated_at = now()
		WHERE id = $1`,
		uuid.UUID(claimID), score, string(level), fraudScore,
	)
	if err != nil {
		return fmt.Errorf("update verification result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) SetStatus(ctx context.Context, claimID id.ClaimID, status models.VerificationStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE claims SET verification_status = $2, updated_at = now() WHERE id = $1`,
		uuid.UUID(claimID), string(status),
	)
	if err != nil {
		return fmt.Errorf("set claim status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ApplyReview(ctx context.Context, claimID id.ClaimID, to models.VerificationStatus, reviewer id.UserID, notes string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE claims
		SET verification_status = $2, reviewed_by = $3, review_notes = $4,
		    reviewed_at = $5, updated_at = $5
		WHERE id = $1 AND verification_status = 'PENDING_HUMAN_REVIEW'`,
		uuid.UUID(claimID), string(to), uuid.UUID(reviewer), notes, at,
	)
	if err != nil {
		return fmt.Errorf("apply review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM claims WHERE id = $1)`, uuid.UUID(claimID)).Scan(&exists); err != nil {
			return fmt.Errorf("check claim existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrPreconditionFailed
	}
	return nil
}

func reviewedBy(reviewer *id.UserID) *uuid.UUID {
	if reviewer == nil {
		return nil
	}
	u := uuid.UUID(*reviewer)
	return &u
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*models.Claim, error) {
	var (
		claim      models.Claim
		claimID    uuid.UUID
		ownerID    uuid.UUID
		polygon    []byte
		status     string
		level      string
		reviewedBy *uuid.UUID
	)
	err := row.Scan(
		&claimID, &ownerID, &claim.Lat, &claim.Lng, &polygon,
		&claim.GrantorName, &claim.DocumentRef, &status,
		&claim.ConfidenceScore, &level, &claim.FraudScore,
		&reviewedBy, &claim.ReviewNotes, &claim.ReviewedAt,
		&claim.CreatedAt, &claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	claim.ID = id.ClaimID(claimID)
	claim.OwnerID = id.UserID(ownerID)
	claim.Status = models.VerificationStatus(status)
	claim.ConfidenceLevel = models.ConfidenceLevel(level)
	if reviewedBy != nil {
		rb := id.UserID(*reviewedBy)
		claim.ReviewedBy = &rb
	}
	claim.Polygon, err = models.ParsePolygon(polygon)
	if err != nil {
		return nil, fmt.Errorf("stored polygon invalid for claim %s: %w", claim.ID, err)
	}
	return &claim, nil
}

func collectClaims(rows pgx.Rows) ([]*models.Claim, error) {
	defer rows.Close()
	var out []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, claim)
	}
	return out, rows.Err()
}
