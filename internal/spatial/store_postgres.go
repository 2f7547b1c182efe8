package spatial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "titleguard/pkg/domain"
	"titleguard/pkg/platform/sentinel"
)

// PostgresConflicts persists spatial conflicts in PostgreSQL. A unique index
// on the normalized claim pair (least/greatest) backs the upsert.
type PostgresConflicts struct {
	pool *pgxpool.Pool
}

func NewPostgresConflicts(pool *pgxpool.Pool) *PostgresConflicts {
	return &PostgresConflicts{pool: pool}
}

func (s *PostgresConflicts) Upsert(ctx context.Context, conflict *Conflict) error {
	var storedID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO spatial_conflicts
			(id, claim_id, conflicting_claim_id, overlap_area, overlap_percentage,
			 severity, status, resolution_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '', $8, $8)
		ON CONFLICT (least(claim_id, conflicting_claim_id), greatest(claim_id, conflicting_claim_id))
		DO UPDATE SET
			overlap_area = EXCLUDED.overlap_area,
			overlap_percentage = EXCLUDED.overlap_percentage,
			severity = EXCLUDED.severity,
			updated_at = EXCLUDED.updated_at
		RETURNING id`,
		uuid.UUID(conflict.ID), uuid.UUID(conflict.ClaimID), uuid.UUID(conflict.ConflictingClaimID),
		conflict.OverlapArea, conflict.OverlapPercentage,
		string(conflict.Severity), string(conflict.Status), conflict.CreatedAt,
	).Scan(&storedID)
	if err != nil {
		return fmt.Errorf("upsert spatial conflict: %w", err)
	}
	conflict.ID = id.ConflictID(storedID)
	return nil
}

const conflictColumns = `id, claim_id, conflicting_claim_id, overlap_area,
	overlap_percentage, severity, status, reviewed_by, resolution_notes,
	created_at, updated_at`

func (s *PostgresConflicts) Get(ctx context.Context, conflictID id.ConflictID) (*Conflict, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+conflictColumns+` FROM spatial_conflicts WHERE id = $1`, uuid.UUID(conflictID))
	conflict, err := scanConflict(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get spatial conflict: %w", err)
	}
	return conflict, nil
}

func (s *PostgresConflicts) ListByClaim(ctx context.Context, claimID id.ClaimID) ([]*Conflict, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+conflictColumns+` FROM spatial_conflicts
		WHERE claim_id = $1 OR conflicting_claim_id = $1
		ORDER BY id`,
		uuid.UUID(claimID),
	)
	if err != nil {
		return nil, fmt.Errorf("list conflicts by claim: %w", err)
	}
	defer rows.Close()

	var out []*Conflict
	for rows.Next() {
		conflict, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan spatial conflict: %w", err)
		}
		out = append(out, conflict)
	}
	return out, rows.Err()
}

func (s *PostgresConflicts) ListDisputedClaimIDs(ctx context.Context) ([]id.ClaimID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT claim_id FROM (
			SELECT claim_id FROM spatial_conflicts WHERE status = 'DISPUTED'
			UNION
			SELECT conflicting_claim_id FROM spatial_conflicts WHERE status = 'DISPUTED'
		) disputed(claim_id)`,
	)
	if err != nil {
		return nil, fmt.Errorf("list disputed claim ids: %w", err)
	}
	defer rows.Close()

	var out []id.ClaimID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan disputed claim id: %w", err)
		}
		out = append(out, id.ClaimID(u))
	}
	return out, rows.Err()
}

func (s *PostgresConflicts) UpdateResolution(ctx context.Context, conflictID id.ConflictID, status ConflictStatus, reviewer id.UserID, notes string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE spatial_conflicts
		SET status = $2, reviewed_by = $3, resolution_notes = $4, updated_at = $5
		WHERE id = $1`,
		uuid.UUID(conflictID), string(status), uuid.UUID(reviewer), notes, at,
	)
	if err != nil {
		return fmt.Errorf("update conflict resolution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConflict(row rowScanner) (*Conflict, error) {
	var (
		conflict   Conflict
		conflictID uuid.UUID
		claimID    uuid.UUID
		otherID    uuid.UUID
		severity   string
		status     string
		reviewedBy *uuid.UUID
	)
	err := row.Scan(
		&conflictID, &claimID, &otherID, &conflict.OverlapArea,
		&conflict.OverlapPercentage, &severity, &status, &reviewedBy,
		&conflict.ResolutionNotes, &conflict.CreatedAt, &conflict.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	conflict.ID = id.ConflictID(conflictID)
	conflict.ClaimID = id.ClaimID(claimID)
	conflict.ConflictingClaimID = id.ClaimID(otherID)
	conflict.Severity = Severity(severity)
	conflict.Status = ConflictStatus(status)
	if reviewedBy != nil {
		rb := id.UserID(*reviewedBy)
		conflict.ReviewedBy = &rb
	}
	return &conflict, nil
}
