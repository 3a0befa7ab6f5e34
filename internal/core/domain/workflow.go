package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workflow is a registered CI workflow. Source holds the raw YAML definition;
// it is re-parsed on demand so that a stored workflow always reflects exactly
// what the user uploaded.
type Workflow struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Source      string    `json:"-"`
	Active      bool      `json:"active"`
}
