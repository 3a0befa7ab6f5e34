package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"forgeci/internal/core/domain"
	ports "forgeci/internal/core/ports/output"
)

// MockWorkflowRepo is a mock of WorkflowRepository.
type MockWorkflowRepo struct {
	mock.Mock
}

func (m *MockWorkflowRepo) Create(ctx context.Context, workflow *domain.Workflow) error {
	args := m.Called(ctx, workflow)
	return args.Error(0)
}

func (m *MockWorkflowRepo) GetByID(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.Workflow, error) {
	args := m.Called(ctx, projectID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workflow), args.Error(1)
}

func (m *MockWorkflowRepo) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.Workflow, error) {
	args := m.Called(ctx, projectID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workflow), args.Error(1)
}

func (m *MockWorkflowRepo) Update(ctx context.Context, projectID uuid.UUID, workflow *domain.Workflow) error {
	args := m.Called(ctx, projectID, workflow)
	return args.Error(0)
}

func (m *MockWorkflowRepo) Delete(ctx context.Context, projectID uuid.UUID, id uuid.UUID) error {
	args := m.Called(ctx, projectID, id)
	return args.Error(0)
}

func (m *MockWorkflowRepo) List(ctx context.Context, filter ports.WorkflowListFilter) ([]*domain.Workflow, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Workflow), args.Int(1), args.Error(2)
}

func (m *MockWorkflowRepo) ListActive(ctx context.Context) ([]*domain.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Workflow), args.Error(1)
}

func (m *MockWorkflowRepo) ListActiveByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Workflow, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Workflow), args.Error(1)
}

func (m *MockWorkflowRepo) GetByRunID(ctx context.Context, runID uuid.UUID) (*domain.Workflow, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workflow), args.Error(1)
}

// MockRunRepo is a mock of RunRepository.
type MockRunRepo struct {
	mock.Mock
}

func (m *MockRunRepo) Create(ctx context.Context, run *domain.WorkflowRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepo) GetByID(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.WorkflowRun, error) {
	args := m.Called(ctx, projectID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkflowRun), args.Error(1)
}

func (m *MockRunRepo) List(ctx context.Context, filter ports.RunListFilter) ([]*domain.WorkflowRun, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.WorkflowRun), args.Int(1), args.Error(2)
}

func (m *MockRunRepo) NextNumber(ctx context.Context, workflowID uuid.UUID) (int, error) {
	args := m.Called(ctx, workflowID)
	return args.Int(0), args.Error(1)
}

func (m *MockRunRepo) GetStatus(ctx context.Context, id uuid.UUID) (domain.RunStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.RunStatus), args.Error(1)
}

func (m *MockRunRepo) MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	args := m.Called(ctx, id, startedAt)
	return args.Error(0)
}

func (m *MockRunRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, startedAt, finishedAt *time.Time) error {
	args := m.Called(ctx, id, status, startedAt, finishedAt)
	return args.Error(0)
}

func (m *MockRunRepo) CountActiveByWorkflow(ctx context.Context, workflowID uuid.UUID) (int, error) {
	args := m.Called(ctx, workflowID)
	return args.Int(0), args.Error(1)
}

// MockJobRepo is a mock of JobRepository.
type MockJobRepo struct {
	mock.Mock
}

func (m *MockJobRepo) Create(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepo) GetByID(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, projectID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.Job, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *MockJobRepo) ClaimQueued(ctx context.Context) (*domain.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, startedAt, finishedAt *time.Time) error {
	args := m.Called(ctx, id, status, startedAt, finishedAt)
	return args.Error(0)
}

func (m *MockJobRepo) CancelQueuedByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	args := m.Called(ctx, runID)
	return args.Int(0), args.Error(1)
}

func (m *MockJobRepo) CreateSteps(ctx context.Context, steps []*domain.StepResult) error {
	args := m.Called(ctx, steps)
	return args.Error(0)
}

func (m *MockJobRepo) UpdateStep(ctx context.Context, step *domain.StepResult) error {
	args := m.Called(ctx, step)
	return args.Error(0)
}

func (m *MockJobRepo) ListSteps(ctx context.Context, jobID uuid.UUID) ([]*domain.StepResult, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StepResult), args.Error(1)
}

// MockSecretRepo is a mock of SecretRepository.
type MockSecretRepo struct {
	mock.Mock
}

func (m *MockSecretRepo) Upsert(ctx context.Context, secret *domain.Secret) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}

func (m *MockSecretRepo) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.Secret, error) {
	args := m.Called(ctx, projectID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Secret), args.Error(1)
}

func (m *MockSecretRepo) ListNames(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSecretRepo) Delete(ctx context.Context, projectID uuid.UUID, name string) error {
	args := m.Called(ctx, projectID, name)
	return args.Error(0)
}

// MockCoverageRepo is a mock of CoverageRepository.
type MockCoverageRepo struct {
	mock.Mock
}

func (m *MockCoverageRepo) Create(ctx context.Context, report *domain.CoverageReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockCoverageRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.CoverageReport, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CoverageReport), args.Error(1)
}

func (m *MockCoverageRepo) UpdateUploadStatus(ctx context.Context, id uuid.UUID, status domain.UploadStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockCoverageRepo) ListPendingUpload(ctx context.Context, limit int) ([]*domain.CoverageReport, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CoverageReport), args.Error(1)
}

// MockExecutor is a mock of JobExecutor.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Name() string {
	return "mock"
}

func (m *MockExecutor) RunStep(ctx context.Context, job *domain.Job, step ports.StepRun) (*ports.StepOutcome, error) {
	args := m.Called(ctx, job, step)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.StepOutcome), args.Error(1)
}

// MockUploader is a mock of CoverageUploader.
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockUploader) Upload(ctx context.Context, report *domain.CoverageReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}
