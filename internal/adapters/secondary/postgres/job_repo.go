package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"forgeci/internal/core/domain"
	output "forgeci/internal/core/ports/output"
)

type jobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(pool *pgxpool.Pool) output.JobRepository {
	return &jobRepo{pool: pool}
}

var _ output.JobRepository = (*jobRepo)(nil)

const jobColumns = `id, created_at, updated_at, run_id, job_key, name, runs_on,
		matrix, fail_fast, status, started_at, finished_at`

func (r *jobRepo) Create(ctx context.Context, job *domain.Job) error {
	matrix, err := json.Marshal(job.Matrix)
	if err != nil {
		return fmt.Errorf("encode job matrix: %w", err)
	}

	query := `
		INSERT INTO job
			(id, created_at, updated_at, run_id, job_key, name, runs_on,
			 matrix, fail_fast, status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.pool.Exec(ctx, query,
		job.ID, job.CreatedAt, job.UpdatedAt, job.RunID, job.Key, job.Name, job.RunsOn,
		matrix, job.FailFast, job.Status, job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, projectID, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT j.id, j.created_at, j.updated_at, j.run_id, j.job_key, j.name, j.runs_on,
		       j.matrix, j.fail_fast, j.status, j.started_at, j.finished_at
		FROM job j
		JOIN workflow_run r ON r.id = j.run_id
		JOIN workflow w ON w.id = r.workflow_id
		WHERE j.id = $1 AND w.project_id = $2
	`

	job, err := r.scanJob(r.pool.QueryRow(ctx, query, id, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return job, nil
}

func (r *jobRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.Job, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM job
		WHERE run_id = $1
		ORDER BY created_at, name
	`, jobColumns)

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by run: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

func (r *jobRepo) ClaimQueued(ctx context.Context) (*domain.Job, error) {
	// SKIP LOCKED keeps concurrent workers from fighting over the same row:
	// each claim picks the oldest queued job nobody else is claiming.
	query := fmt.Sprintf(`
		UPDATE job
		SET status = $1, started_at = NOW(), updated_at = NOW()
		WHERE id = (
			SELECT id FROM job
			WHERE status = $2
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s
	`, jobColumns)

	job, err := r.scanJob(r.pool.QueryRow(ctx, query, domain.JobStatusRunning, domain.JobStatusQueued))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotClaimable
		}
		return nil, fmt.Errorf("claim queued job: %w", err)
	}
	return job, nil
}

func (r *jobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, startedAt, finishedAt *time.Time) error {
	query := `
		UPDATE job
		SET status = $1,
		    started_at = COALESCE($2, started_at),
		    finished_at = COALESCE($3, finished_at),
		    updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.pool.Exec(ctx, query, status, startedAt, finishedAt, id)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *jobRepo) CancelQueuedByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	query := `
		UPDATE job
		SET status = $1, finished_at = NOW(), updated_at = NOW()
		WHERE run_id = $2 AND status = $3
	`

	result, err := r.pool.Exec(ctx, query, domain.JobStatusCanceled, runID, domain.JobStatusQueued)
	if err != nil {
		return 0, fmt.Errorf("cancel queued jobs: %w", err)
	}
	canceled := int(result.RowsAffected())
	if canceled == 0 {
		return 0, nil
	}

	// Steps of a canceled job never ran; mark them skipped so job logs read
	// consistently.
	stepQuery := `
		UPDATE step_result
		SET status = $1
		WHERE status = $2
		  AND job_id IN (SELECT id FROM job WHERE run_id = $3 AND status = $4)
	`
	if _, err := r.pool.Exec(ctx, stepQuery,
		domain.StepStatusSkipped, domain.StepStatusQueued, runID, domain.JobStatusCanceled,
	); err != nil {
		return canceled, fmt.Errorf("skip steps of canceled jobs: %w", err)
	}
	return canceled, nil
}

func (r *jobRepo) CreateSteps(ctx context.Context, steps []*domain.StepResult) error {
	query := `
		INSERT INTO step_result
			(id, job_id, step_index, name, status, exit_code, log, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, step := range steps {
		batch.Queue(query,
			step.ID, step.JobID, step.Index, step.Name, step.Status,
			step.ExitCode, step.Log, step.StartedAt, step.FinishedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range steps {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("create steps: %w", err)
		}
	}
	return nil
}

func (r *jobRepo) UpdateStep(ctx context.Context, step *domain.StepResult) error {
	query := `
		UPDATE step_result
		SET status = $1, exit_code = $2, log = $3, started_at = $4, finished_at = $5
		WHERE id = $6
	`

	result, err := r.pool.Exec(ctx, query,
		step.Status, step.ExitCode, step.Log, step.StartedAt, step.FinishedAt, step.ID,
	)
	if err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrStepNotFound
	}
	return nil
}

func (r *jobRepo) ListSteps(ctx context.Context, jobID uuid.UUID) ([]*domain.StepResult, error) {
	query := `
		SELECT id, job_id, step_index, name, status, exit_code, log, started_at, finished_at
		FROM step_result
		WHERE job_id = $1
		ORDER BY step_index
	`

	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []*domain.StepResult
	for rows.Next() {
		step := &domain.StepResult{}
		err := rows.Scan(
			&step.ID, &step.JobID, &step.Index, &step.Name, &step.Status,
			&step.ExitCode, &step.Log, &step.StartedAt, &step.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan step row: %w", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step rows: %w", err)
	}
	return steps, nil
}

func (r *jobRepo) scanJob(row pgx.Row) (*domain.Job, error) {
	job := &domain.Job{}
	var matrix []byte
	err := row.Scan(
		&job.ID, &job.CreatedAt, &job.UpdatedAt, &job.RunID, &job.Key, &job.Name, &job.RunsOn,
		&matrix, &job.FailFast, &job.Status, &job.StartedAt, &job.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(matrix) > 0 {
		if err := json.Unmarshal(matrix, &job.Matrix); err != nil {
			return nil, fmt.Errorf("decode job matrix: %w", err)
		}
	}
	return job, nil
}
