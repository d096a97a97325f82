package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claim-deploy/claim-deploy-backend/internal/cleanup/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository persists cleanup audit rows in PostgreSQL, one row per
// kind per pass. Cleanup itself never depends on these rows; they exist so
// operators can see what the reaper has been deleting.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Record writes one audit row per kind in the report.
func (r *ReportRepository) Record(ctx context.Context, trigger string, report *domain.Report) error {
	query := `
		INSERT INTO cleanup_runs (id, trigger, kind, matched, deleted, failed, errors, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, kr := range report.Kinds {
		errorsJSON, err := json.Marshal(kr.Errors)
		if err != nil {
			errorsJSON = []byte("[]")
		}

		_, err = r.pool.Exec(ctx, query,
			uuid.New().String(),
			trigger,
			kr.Kind,
			kr.Matched,
			kr.Deleted,
			kr.Failed,
			errorsJSON,
			report.StartedAt,
			report.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to record cleanup run: %w", err)
		}
	}
	return nil
}

// Recent returns the newest audit rows, most recent first.
func (r *ReportRepository) Recent(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, trigger, kind, matched, deleted, failed, errors, started_at, finished_at
		FROM cleanup_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cleanup runs: %w", err)
	}
	defer rows.Close()

	var records []domain.RunRecord
	for rows.Next() {
		var rec domain.RunRecord
		var errorsJSON []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.Trigger,
			&rec.Kind,
			&rec.Matched,
			&rec.Deleted,
			&rec.Failed,
			&errorsJSON,
			&rec.StartedAt,
			&rec.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cleanup run: %w", err)
		}
		if len(errorsJSON) > 0 {
			if err := json.Unmarshal(errorsJSON, &rec.Errors); err != nil {
				rec.Errors = nil
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cleanup runs: %w", err)
	}
	return records, nil
}
