package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"forgeci/internal/core/domain"
	output "forgeci/internal/core/ports/output"
)

type runRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new RunRepository
func NewRunRepository(pool *pgxpool.Pool) output.RunRepository {
	return &runRepo{pool: pool}
}

var _ output.RunRepository = (*runRepo)(nil)

const runColumns = `id, created_at, updated_at, workflow_id, number,
		event_kind, event_branch, event_commit_sha, event_pr_number, event_actor,
		status, started_at, finished_at`

func (r *runRepo) Create(ctx context.Context, run *domain.WorkflowRun) error {
	query := `
		INSERT INTO workflow_run
			(id, created_at, updated_at, workflow_id, number,
			 event_kind, event_branch, event_commit_sha, event_pr_number, event_actor,
			 status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.CreatedAt, run.UpdatedAt, run.WorkflowID, run.Number,
		run.Event.Kind, run.Event.Branch, run.Event.CommitSHA, run.Event.PRNumber, run.Event.Actor,
		run.Status, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Unique index on (workflow_id, number): concurrent events for
			// the same workflow can compute the same next number. The
			// service retries with a fresh one.
			return domain.ErrRunNumberConflict
		}
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (r *runRepo) GetByID(ctx context.Context, projectID, id uuid.UUID) (*domain.WorkflowRun, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM workflow_run r
		WHERE r.id = $1
		  AND EXISTS (SELECT 1 FROM workflow w WHERE w.id = r.workflow_id AND w.project_id = $2)
	`, prefixColumns(runColumns, "r"))

	run, err := r.scanRun(r.pool.QueryRow(ctx, query, id, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return run, nil
}

func (r *runRepo) List(ctx context.Context, filter output.RunListFilter) ([]*domain.WorkflowRun, int, error) {
	conditions := []string{
		"EXISTS (SELECT 1 FROM workflow w WHERE w.id = r.workflow_id AND w.project_id = $1)",
	}
	args := []interface{}{filter.ProjectID}
	argPos := 2

	if filter.WorkflowID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("r.workflow_id = $%d", argPos))
		args = append(args, filter.WorkflowID)
		argPos++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}
	if filter.EventKind != "" {
		conditions = append(conditions, fmt.Sprintf("r.event_kind = $%d", argPos))
		args = append(args, filter.EventKind)
		argPos++
	}
	if filter.Branch != "" {
		conditions = append(conditions, fmt.Sprintf("r.event_branch = $%d", argPos))
		args = append(args, filter.Branch)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM workflow_run r WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM workflow_run r
		WHERE %s
		ORDER BY r.created_at DESC
		LIMIT $%d OFFSET $%d
	`, prefixColumns(runColumns, "r"), whereClause, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.WorkflowRun
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, total, nil
}

func (r *runRepo) NextNumber(ctx context.Context, workflowID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(MAX(number), 0) + 1 FROM workflow_run WHERE workflow_id = $1`

	var number int
	if err := r.pool.QueryRow(ctx, query, workflowID).Scan(&number); err != nil {
		return 0, fmt.Errorf("next run number: %w", err)
	}
	return number, nil
}

func (r *runRepo) GetStatus(ctx context.Context, id uuid.UUID) (domain.RunStatus, error) {
	query := `SELECT status FROM workflow_run WHERE id = $1`

	var status domain.RunStatus
	if err := r.pool.QueryRow(ctx, query, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrRunNotFound
		}
		return "", fmt.Errorf("get run status: %w", err)
	}
	return status, nil
}

func (r *runRepo) MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	// Guarded on QUEUED so concurrent workers and a raced cancel cannot
	// regress the status or overwrite the original start time.
	query := `
		UPDATE workflow_run
		SET status = $1, started_at = COALESCE(started_at, $2), updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	if _, err := r.pool.Exec(ctx, query, domain.RunStatusRunning, startedAt, id, domain.RunStatusQueued); err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	return nil
}

func (r *runRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, startedAt, finishedAt *time.Time) error {
	query := `
		UPDATE workflow_run
		SET status = $1,
		    started_at = COALESCE($2, started_at),
		    finished_at = COALESCE($3, finished_at),
		    updated_at = NOW()
		WHERE id = $4 AND status NOT IN ($5, $6, $7)
	`

	result, err := r.pool.Exec(ctx, query,
		status, startedAt, finishedAt, id,
		domain.RunStatusSucceeded, domain.RunStatusFailed, domain.RunStatusCanceled,
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Either the run does not exist or it already reached a terminal
		// status; the first outcome wins in the latter case.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workflow_run WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("update run status: %w", err)
		}
		if !exists {
			return domain.ErrRunNotFound
		}
	}
	return nil
}

func (r *runRepo) CountActiveByWorkflow(ctx context.Context, workflowID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM workflow_run WHERE workflow_id = $1 AND status IN ($2, $3)`

	var count int
	if err := r.pool.QueryRow(ctx, query, workflowID, domain.RunStatusQueued, domain.RunStatusRunning).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active runs: %w", err)
	}
	return count, nil
}

func (r *runRepo) scanRun(row pgx.Row) (*domain.WorkflowRun, error) {
	run := &domain.WorkflowRun{}
	err := row.Scan(
		&run.ID, &run.CreatedAt, &run.UpdatedAt, &run.WorkflowID, &run.Number,
		&run.Event.Kind, &run.Event.Branch, &run.Event.CommitSHA, &run.Event.PRNumber, &run.Event.Actor,
		&run.Status, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// prefixColumns rewrites a bare column list with a table alias.
func prefixColumns(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
