package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"forgeci/internal/core/domain"
	output "forgeci/internal/core/ports/output"
)

type workflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepository creates a new WorkflowRepository
func NewWorkflowRepository(pool *pgxpool.Pool) output.WorkflowRepository {
	return &workflowRepo{pool: pool}
}

var _ output.WorkflowRepository = (*workflowRepo)(nil)

func (r *workflowRepo) Create(ctx context.Context, workflow *domain.Workflow) error {
	query := `
		INSERT INTO workflow
			(id, created_at, updated_at, project_id, name, description, source, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		workflow.ID, workflow.CreatedAt, workflow.UpdatedAt,
		workflow.ProjectID, workflow.Name, workflow.Description,
		workflow.Source, workflow.Active,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrWorkflowNameConflict
		}
		return fmt.Errorf("create workflow: %w", err)
	}
	return nil
}

func (r *workflowRepo) GetByID(ctx context.Context, projectID, id uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT id, created_at, updated_at, project_id, name, description, source, active
		FROM workflow
		WHERE id = $1 AND project_id = $2
	`

	workflow, err := r.scanWorkflow(r.pool.QueryRow(ctx, query, id, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("get workflow by id: %w", err)
	}
	return workflow, nil
}

func (r *workflowRepo) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.Workflow, error) {
	query := `
		SELECT id, created_at, updated_at, project_id, name, description, source, active
		FROM workflow
		WHERE project_id = $1 AND name = $2
	`

	workflow, err := r.scanWorkflow(r.pool.QueryRow(ctx, query, projectID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("get workflow by name: %w", err)
	}
	return workflow, nil
}

func (r *workflowRepo) GetByRunID(ctx context.Context, runID uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT w.id, w.created_at, w.updated_at, w.project_id, w.name, w.description, w.source, w.active
		FROM workflow w
		JOIN workflow_run r ON r.workflow_id = w.id
		WHERE r.id = $1
	`

	workflow, err := r.scanWorkflow(r.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("get workflow by run id: %w", err)
	}
	return workflow, nil
}

func (r *workflowRepo) Update(ctx context.Context, projectID uuid.UUID, workflow *domain.Workflow) error {
	query := `
		UPDATE workflow
		SET name = $1, description = $2, source = $3, active = $4, updated_at = NOW()
		WHERE id = $5 AND project_id = $6
	`

	result, err := r.pool.Exec(ctx, query,
		workflow.Name, workflow.Description, workflow.Source, workflow.Active,
		workflow.ID, projectID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrWorkflowNameConflict
		}
		return fmt.Errorf("update workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrWorkflowNotFound
	}
	return nil
}

func (r *workflowRepo) Delete(ctx context.Context, projectID, id uuid.UUID) error {
	query := `DELETE FROM workflow WHERE id = $1 AND project_id = $2`

	result, err := r.pool.Exec(ctx, query, id, projectID)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrWorkflowNotFound
	}
	return nil
}

func (r *workflowRepo) List(ctx context.Context, filter output.WorkflowListFilter) ([]*domain.Workflow, int, error) {
	conditions := []string{"project_id = $1"}
	args := []interface{}{filter.ProjectID}
	argPos := 2

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", argPos))
		args = append(args, *filter.Active)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM workflow WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count workflows: %w", err)
	}

	orderBy := "created_at DESC"
	if filter.SortBy != "" {
		dir := "DESC"
		if filter.Order == "asc" {
			dir = "ASC"
		}
		orderBy = fmt.Sprintf("%s %s", filter.SortBy, dir)
	}

	query := fmt.Sprintf(`
		SELECT id, created_at, updated_at, project_id, name, description, source, active
		FROM workflow
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*domain.Workflow
	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan workflow row: %w", err)
		}
		workflows = append(workflows, workflow)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate workflow rows: %w", err)
	}

	return workflows, total, nil
}

func (r *workflowRepo) ListActive(ctx context.Context) ([]*domain.Workflow, error) {
	query := `
		SELECT id, created_at, updated_at, project_id, name, description, source, active
		FROM workflow
		WHERE active = TRUE
		ORDER BY created_at
	`
	return r.listAll(ctx, query)
}

func (r *workflowRepo) ListActiveByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Workflow, error) {
	query := `
		SELECT id, created_at, updated_at, project_id, name, description, source, active
		FROM workflow
		WHERE active = TRUE AND project_id = $1
		ORDER BY created_at
	`
	return r.listAll(ctx, query, projectID)
}

func (r *workflowRepo) listAll(ctx context.Context, query string, args ...interface{}) ([]*domain.Workflow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*domain.Workflow
	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow row: %w", err)
		}
		workflows = append(workflows, workflow)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow rows: %w", err)
	}
	return workflows, nil
}

func (r *workflowRepo) scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	workflow := &domain.Workflow{}
	err := row.Scan(
		&workflow.ID, &workflow.CreatedAt, &workflow.UpdatedAt,
		&workflow.ProjectID, &workflow.Name, &workflow.Description,
		&workflow.Source, &workflow.Active,
	)
	if err != nil {
		return nil, err
	}
	return workflow, nil
}
