package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"forgeci/internal/core/domain"
	ports "forgeci/internal/core/ports/output"
	"forgeci/internal/core/spec"
)

type WorkflowService struct {
	repo    ports.WorkflowRepository
	runRepo ports.RunRepository
}

func NewWorkflowService(repo ports.WorkflowRepository, runRepo ports.RunRepository) *WorkflowService {
	return &WorkflowService{repo: repo, runRepo: runRepo}
}

// Create registers a workflow from its YAML source. The workflow name comes
// from the document itself so the stored record can never disagree with it.
func (s *WorkflowService) Create(ctx context.Context, projectID uuid.UUID, source, description string) (*domain.Workflow, error) {
	def, err := spec.Parse([]byte(source))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
	}

	now := time.Now()
	workflow := &domain.Workflow{
		ID:          uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
		ProjectID:   projectID,
		Name:        def.Name,
		Description: description,
		Source:      source,
		Active:      true,
	}

	if err := s.repo.Create(ctx, workflow); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, projectID, workflow.ID)
}

func (s *WorkflowService) Get(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.Workflow, error) {
	return s.repo.GetByID(ctx, projectID, id)
}

func (s *WorkflowService) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.Workflow, error) {
	if name == "" {
		return nil, domain.ErrInvalidWorkflowName
	}
	return s.repo.GetByName(ctx, projectID, name)
}

func (s *WorkflowService) List(ctx context.Context, filter ports.WorkflowListFilter) ([]*domain.Workflow, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *WorkflowService) Update(ctx context.Context, projectID uuid.UUID, id uuid.UUID, updates map[string]interface{}) (*domain.Workflow, error) {
	workflow, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}

	if v, ok := updates["source"]; ok && v != nil {
		source := v.(string)
		def, err := spec.Parse([]byte(source))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
		}
		workflow.Source = source
		workflow.Name = def.Name
	}
	if v, ok := updates["description"]; ok && v != nil {
		workflow.Description = v.(string)
	}
	if v, ok := updates["active"]; ok && v != nil {
		workflow.Active = v.(bool)
	}

	if err := s.repo.Update(ctx, projectID, workflow); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, projectID, id)
}

// Delete refuses while runs are still queued or running; finished run history
// is removed along with the workflow.
func (s *WorkflowService) Delete(ctx context.Context, projectID uuid.UUID, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, projectID, id); err != nil {
		return err
	}
	active, err := s.runRepo.CountActiveByWorkflow(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return domain.ErrWorkflowHasActiveRuns
	}
	return s.repo.Delete(ctx, projectID, id)
}

// Definition parses the stored source. Stored workflows were validated at
// registration, so a parse failure here means the format itself changed.
func (s *WorkflowService) Definition(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*spec.Definition, error) {
	workflow, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	def, err := spec.Parse([]byte(workflow.Source))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
	}
	return def, nil
}
