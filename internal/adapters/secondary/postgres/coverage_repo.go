package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"forgeci/internal/core/domain"
	output "forgeci/internal/core/ports/output"
)

type coverageRepo struct {
	pool *pgxpool.Pool
}

// NewCoverageRepository creates a new CoverageRepository
func NewCoverageRepository(pool *pgxpool.Pool) output.CoverageRepository {
	return &coverageRepo{pool: pool}
}

var _ output.CoverageRepository = (*coverageRepo)(nil)

func (r *coverageRepo) Create(ctx context.Context, report *domain.CoverageReport) error {
	query := `
		INSERT INTO coverage_report
			(id, created_at, run_id, job_id, flag, percent, payload, upload_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		report.ID, report.CreatedAt, report.RunID, report.JobID,
		report.Flag, report.Percent, report.Payload, report.UploadStatus,
	)
	if err != nil {
		return fmt.Errorf("create coverage report: %w", err)
	}
	return nil
}

func (r *coverageRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.CoverageReport, error) {
	query := `
		SELECT id, created_at, run_id, job_id, flag, percent, payload, upload_status
		FROM coverage_report
		WHERE run_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list coverage reports: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *coverageRepo) UpdateUploadStatus(ctx context.Context, id uuid.UUID, status domain.UploadStatus) error {
	query := `UPDATE coverage_report SET upload_status = $1 WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update coverage upload status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrCoverageNotFound
	}
	return nil
}

func (r *coverageRepo) ListPendingUpload(ctx context.Context, limit int) ([]*domain.CoverageReport, error) {
	query := `
		SELECT id, created_at, run_id, job_id, flag, percent, payload, upload_status
		FROM coverage_report
		WHERE upload_status = $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, domain.UploadStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending coverage reports: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *coverageRepo) collect(rows pgx.Rows) ([]*domain.CoverageReport, error) {
	var reports []*domain.CoverageReport
	for rows.Next() {
		report := &domain.CoverageReport{}
		err := rows.Scan(
			&report.ID, &report.CreatedAt, &report.RunID, &report.JobID,
			&report.Flag, &report.Percent, &report.Payload, &report.UploadStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("scan coverage report row: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coverage report rows: %w", err)
	}
	return reports, nil
}
