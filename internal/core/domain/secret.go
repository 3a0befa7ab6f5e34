package domain

import (
	"time"

	"github.com/google/uuid"
)

// Secret is a named value injected into job environments through
// ${{ secrets.NAME }}. The value is write-only: it is resolved at execution
// time and never leaves the service through the API.
type Secret struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	Value     string    `json:"-"`
}
