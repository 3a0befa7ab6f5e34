package dto

import (
	"time"

	"github.com/google/uuid"

	"forgeci/internal/core/domain"
)

type CreateWorkflowRequest struct {
	// Source is the workflow YAML document. The workflow name comes from the
	// document's name field.
	Source      string `json:"source" binding:"required"`
	Description string `json:"description"`
}

type UpdateWorkflowRequest struct {
	Source      *string `json:"source"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

type WorkflowResponse struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	Source      string    `json:"source,omitempty"`
}

type ListWorkflowsResponse struct {
	Items      []WorkflowResponse `json:"items"`
	Total      int                `json:"total"`
	PageSize   int                `json:"page_size"`
	NextOffset int                `json:"next_offset"`
}

func ToWorkflowResponse(workflow *domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:          workflow.ID,
		CreatedAt:   workflow.CreatedAt,
		UpdatedAt:   workflow.UpdatedAt,
		ProjectID:   workflow.ProjectID,
		Name:        workflow.Name,
		Description: workflow.Description,
		Active:      workflow.Active,
	}
}

// ToWorkflowDetailResponse includes the YAML source; list endpoints leave it
// out to keep responses small.
func ToWorkflowDetailResponse(workflow *domain.Workflow) WorkflowResponse {
	resp := ToWorkflowResponse(workflow)
	resp.Source = workflow.Source
	return resp
}
