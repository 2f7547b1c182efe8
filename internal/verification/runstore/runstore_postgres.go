package runstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"titleguard/internal/verification"
	id "titleguard/pkg/domain"
)

// Postgres is the pgx-backed RunStore. Rows are append-only.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Insert(ctx context.Context, run *verification.Run) error {
	if run.ID.IsNil() {
		run.ID = id.NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	const q = `
		INSERT INTO verification_runs (
			id, claim_id, document_score, gps_score, crossref_score, spatial_score,
			overall_confidence, confidence_level, recommendation, reasoning,
			fraud_indicators, hitl_override, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err := s.pool.Exec(ctx, q,
		run.ID.String(), run.ClaimID.String(),
		run.DocumentScore, run.GPSScore, run.CrossRefScore, run.SpatialScore,
		run.OverallConfidence, run.Level, string(run.Recommendation), run.Reasoning,
		run.FraudIndicators, run.HITLOverride, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting verification run: %w", err)
	}
	return nil
}

func (s *Postgres) ListByClaim(ctx context.Context, claimID id.ClaimID) ([]*verification.Run, error) {
	const q = `
		SELECT id, claim_id, document_score, gps_score, crossref_score, spatial_score,
		       overall_confidence, confidence_level, recommendation, reasoning,
		       fraud_indicators, hitl_override, created_at
		FROM verification_runs
		WHERE claim_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, claimID.String())
	if err != nil {
		return nil, fmt.Errorf("listing verification runs: %w", err)
	}
	defer rows.Close()

	var out []*verification.Run
	for rows.Next() {
		var (
			run            verification.Run
			runID, claim   string
			recommendation string
		)
		if err := rows.Scan(
			&runID, &claim,
			&run.DocumentScore, &run.GPSScore, &run.CrossRefScore, &run.SpatialScore,
			&run.OverallConfidence, &run.Level, &recommendation, &run.Reasoning,
			&run.FraudIndicators, &run.HITLOverride, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning verification run: %w", err)
		}
		run.ID, err = id.ParseRunID(runID)
		if err != nil {
			return nil, fmt.Errorf("parsing run id: %w", err)
		}
		run.ClaimID, err = id.ParseClaimID(claim)
		if err != nil {
			return nil, fmt.Errorf("parsing claim id: %w", err)
		}
		run.Recommendation = verification.Recommendation(recommendation)
		out = append(out, &run)
	}
	return out, rows.Err()
}
