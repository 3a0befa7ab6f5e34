package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"forgeci/internal/core/domain"
	ports "forgeci/internal/core/ports/output"
)

type SecretService struct {
	repo ports.SecretRepository
}

func NewSecretService(repo ports.SecretRepository) *SecretService {
	return &SecretService{repo: repo}
}

// Set creates or replaces a secret. Values only flow inward; nothing in the
// service ever returns one through the API.
func (s *SecretService) Set(ctx context.Context, projectID uuid.UUID, name, value string) (*domain.Secret, error) {
	if name == "" {
		return nil, domain.ErrInvalidSecretName
	}

	now := time.Now()
	secret := &domain.Secret{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		ProjectID: projectID,
		Name:      name,
		Value:     value,
	}
	if err := s.repo.Upsert(ctx, secret); err != nil {
		return nil, err
	}
	secret.Value = ""
	return secret, nil
}

func (s *SecretService) ListNames(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	return s.repo.ListNames(ctx, projectID)
}

func (s *SecretService) Delete(ctx context.Context, projectID uuid.UUID, name string) error {
	if name == "" {
		return domain.ErrInvalidSecretName
	}
	return s.repo.Delete(ctx, projectID, name)
}

// Resolve fetches the values for the named secrets. A missing secret fails
// the whole resolution so the job errors before any step runs.
func (s *SecretService) Resolve(ctx context.Context, projectID uuid.UUID, names []string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	for _, name := range names {
		secret, err := s.repo.GetByName(ctx, projectID, name)
		if err != nil {
			return nil, fmt.Errorf("resolve secret %q: %w", name, err)
		}
		values[name] = secret.Value
	}
	return values, nil
}
