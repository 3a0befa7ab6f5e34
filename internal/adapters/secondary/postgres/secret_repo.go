package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"forgeci/internal/core/domain"
	output "forgeci/internal/core/ports/output"
)

type secretRepo struct {
	pool *pgxpool.Pool
}

// NewSecretRepository creates a new SecretRepository
func NewSecretRepository(pool *pgxpool.Pool) output.SecretRepository {
	return &secretRepo{pool: pool}
}

var _ output.SecretRepository = (*secretRepo)(nil)

func (r *secretRepo) Upsert(ctx context.Context, secret *domain.Secret) error {
	query := `
		INSERT INTO secret (id, created_at, updated_at, project_id, name, value)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (project_id, name)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		secret.ID, secret.CreatedAt, secret.UpdatedAt,
		secret.ProjectID, secret.Name, secret.Value,
	)
	if err != nil {
		return fmt.Errorf("upsert secret: %w", err)
	}
	return nil
}

func (r *secretRepo) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.Secret, error) {
	query := `
		SELECT id, created_at, updated_at, project_id, name, value
		FROM secret
		WHERE project_id = $1 AND name = $2
	`

	secret := &domain.Secret{}
	err := r.pool.QueryRow(ctx, query, projectID, name).Scan(
		&secret.ID, &secret.CreatedAt, &secret.UpdatedAt,
		&secret.ProjectID, &secret.Name, &secret.Value,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSecretNotFound
		}
		return nil, fmt.Errorf("get secret by name: %w", err)
	}
	return secret, nil
}

func (r *secretRepo) ListNames(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	query := `SELECT name FROM secret WHERE project_id = $1 ORDER BY name`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list secret names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan secret name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate secret names: %w", err)
	}
	return names, nil
}

func (r *secretRepo) Delete(ctx context.Context, projectID uuid.UUID, name string) error {
	query := `DELETE FROM secret WHERE project_id = $1 AND name = $2`

	result, err := r.pool.Exec(ctx, query, projectID, name)
	if err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSecretNotFound
	}
	return nil
}
