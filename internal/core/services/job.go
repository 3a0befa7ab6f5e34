package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"forgeci/internal/core/domain"
	ports "forgeci/internal/core/ports/output"
)

type JobService struct {
	repo ports.JobRepository
}

func NewJobService(repo ports.JobRepository) *JobService {
	return &JobService{repo: repo}
}

func (s *JobService) Get(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.Job, error) {
	return s.repo.GetByID(ctx, projectID, id)
}

func (s *JobService) ListSteps(ctx context.Context, projectID uuid.UUID, jobID uuid.UUID) ([]*domain.StepResult, error) {
	if _, err := s.repo.GetByID(ctx, projectID, jobID); err != nil {
		return nil, err
	}
	return s.repo.ListSteps(ctx, jobID)
}

// Log concatenates the step logs of a job in step order, each prefixed with
// a step header, mirroring what a runner console would have shown.
func (s *JobService) Log(ctx context.Context, projectID uuid.UUID, jobID uuid.UUID) (string, error) {
	steps, err := s.ListSteps(ctx, projectID, jobID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, step := range steps {
		b.WriteString("### " + step.Name + " [" + string(step.Status) + "]\n")
		if step.Log != "" {
			b.WriteString(step.Log)
			if !strings.HasSuffix(step.Log, "\n") {
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}
