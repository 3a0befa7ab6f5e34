package dto

import (
	"time"

	"github.com/google/uuid"

	"forgeci/internal/core/domain"
)

type SetSecretRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Value string `json:"value" binding:"required"`
}

// SecretResponse never carries the value.
type SecretResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
}

type ListSecretNamesResponse struct {
	Names []string `json:"names"`
}

func ToSecretResponse(secret *domain.Secret) SecretResponse {
	return SecretResponse{
		ID:        secret.ID,
		CreatedAt: secret.CreatedAt,
		UpdatedAt: secret.UpdatedAt,
		ProjectID: secret.ProjectID,
		Name:      secret.Name,
	}
}
