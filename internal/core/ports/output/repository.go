package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"forgeci/internal/core/domain"
)

type WorkflowListFilter struct {
	ProjectID uuid.UUID
	Active    *bool
	Search    string
	SortBy    string
	Order     string
	Limit     int
	Offset    int
}

type RunListFilter struct {
	ProjectID  uuid.UUID
	WorkflowID uuid.UUID
	Status     string
	EventKind  string
	Branch     string
	Limit      int
	Offset     int
}

type WorkflowRepository interface {
	Create(ctx context.Context, workflow *domain.Workflow) error
	GetByID(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.Workflow, error)
	GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.Workflow, error)
	Update(ctx context.Context, projectID uuid.UUID, workflow *domain.Workflow) error
	Delete(ctx context.Context, projectID uuid.UUID, id uuid.UUID) error
	List(ctx context.Context, filter WorkflowListFilter) ([]*domain.Workflow, int, error)
	// ListActive returns active workflows across all projects; the cron
	// scheduler walks this to find due schedules.
	ListActive(ctx context.Context) ([]*domain.Workflow, error)
	ListActiveByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Workflow, error)
	// GetByRunID resolves the workflow a run belongs to. Unscoped: the
	// runner works across projects.
	GetByRunID(ctx context.Context, runID uuid.UUID) (*domain.Workflow, error)
}

type RunRepository interface {
	Create(ctx context.Context, run *domain.WorkflowRun) error
	GetByID(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.WorkflowRun, error)
	List(ctx context.Context, filter RunListFilter) ([]*domain.WorkflowRun, int, error)
	// NextNumber allocates the next per-workflow run number.
	NextNumber(ctx context.Context, workflowID uuid.UUID) (int, error)
	GetStatus(ctx context.Context, id uuid.UUID) (domain.RunStatus, error)
	// MarkRunning sets RUNNING and the start time; a no-op unless the run is
	// still QUEUED, so a second claimed job or a raced cancel cannot regress
	// the status.
	MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	// UpdateStatus applies only while the run is non-terminal; a finished or
	// canceled run keeps its first outcome.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, startedAt, finishedAt *time.Time) error
	CountActiveByWorkflow(ctx context.Context, workflowID uuid.UUID) (int, error)
}

type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.Job, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.Job, error)
	// ClaimQueued atomically moves the oldest queued job to RUNNING and
	// returns it. Returns domain.ErrJobNotClaimable when the queue is empty.
	ClaimQueued(ctx context.Context) (*domain.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, startedAt, finishedAt *time.Time) error
	// CancelQueuedByRun cancels every still-queued job of a run and reports
	// how many were affected.
	CancelQueuedByRun(ctx context.Context, runID uuid.UUID) (int, error)
	CreateSteps(ctx context.Context, steps []*domain.StepResult) error
	UpdateStep(ctx context.Context, step *domain.StepResult) error
	ListSteps(ctx context.Context, jobID uuid.UUID) ([]*domain.StepResult, error)
}

type SecretRepository interface {
	Upsert(ctx context.Context, secret *domain.Secret) error
	GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.Secret, error)
	ListNames(ctx context.Context, projectID uuid.UUID) ([]string, error)
	Delete(ctx context.Context, projectID uuid.UUID, name string) error
}

type CoverageRepository interface {
	Create(ctx context.Context, report *domain.CoverageReport) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.CoverageReport, error)
	UpdateUploadStatus(ctx context.Context, id uuid.UUID, status domain.UploadStatus) error
	ListPendingUpload(ctx context.Context, limit int) ([]*domain.CoverageReport, error)
}
