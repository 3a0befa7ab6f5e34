package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"forgeci/internal/core/domain"
	"forgeci/internal/testutil"
)

const matrixWorkflow = `
name: CI
on:
  push:
    branches: [main]
  schedule:
    - cron: "0 0 * * *"
jobs:
  test:
    name: Test on ${{ matrix.os }}, Python ${{ matrix.python-version }}, OpenEye=${{ matrix.openeye }}
    runs-on: ${{ matrix.os }}
    strategy:
      fail-fast: false
      matrix:
        os: [ubuntu-latest, macOS-latest]
        python-version: ["3.8", "3.9"]
        openeye: [false, true]
    env:
      OE_LICENSE: ${{ secrets.OE_LICENSE }}
    steps:
      - name: Install dependencies
        run: ./ci/install.sh
      - name: Run tests
        run: pytest --cov
`

func newRunService() (*testutil.MockWorkflowRepo, *testutil.MockRunRepo, *testutil.MockJobRepo, *RunService) {
	workflowRepo := new(testutil.MockWorkflowRepo)
	runRepo := new(testutil.MockRunRepo)
	jobRepo := new(testutil.MockJobRepo)
	return workflowRepo, runRepo, jobRepo, NewRunService(workflowRepo, runRepo, jobRepo)
}

func TestRunService_HandleEvent_ExpandsMatrix(t *testing.T) {
	workflowRepo, runRepo, jobRepo, svc := newRunService()

	projectID := uuid.New()
	workflow := &domain.Workflow{ID: uuid.New(), ProjectID: projectID, Name: "CI", Source: matrixWorkflow, Active: true}

	workflowRepo.On("ListActiveByProject", mock.Anything, projectID).Return([]*domain.Workflow{workflow}, nil)
	runRepo.On("NextNumber", mock.Anything, workflow.ID).Return(1, nil)
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job")).Return(nil)
	jobRepo.On("CreateSteps", mock.Anything, mock.AnythingOfType("[]*domain.StepResult")).Return(nil)

	runs, err := svc.HandleEvent(context.Background(), projectID, domain.Event{Kind: domain.EventPush, Branch: "main"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusQueued, runs[0].Status)
	assert.Equal(t, 1, runs[0].Number)

	// 2 OS x 2 Python x 2 openeye = 8 jobs, each with distinct rendered name.
	var names []string
	for _, call := range jobRepo.Calls {
		if call.Method != "Create" {
			continue
		}
		job := call.Arguments.Get(1).(*domain.Job)
		names = append(names, job.Name)
		assert.False(t, job.FailFast)
		assert.Contains(t, []string{"ubuntu-latest", "macOS-latest"}, job.RunsOn)
		assert.Equal(t, "test", job.Key)
	}
	require.Len(t, names, 8)
	seen := make(map[string]bool)
	for _, name := range names {
		assert.False(t, seen[name], "duplicate job name %q", name)
		seen[name] = true
	}
	assert.Contains(t, names, "Test on ubuntu-latest, Python 3.8, OpenEye=false")
	assert.Contains(t, names, "Test on macOS-latest, Python 3.9, OpenEye=true")
}

func TestRunService_HandleEvent_RetriesOnRunNumberConflict(t *testing.T) {
	workflowRepo, runRepo, jobRepo, svc := newRunService()

	projectID := uuid.New()
	workflow := &domain.Workflow{ID: uuid.New(), ProjectID: projectID, Name: "CI", Source: matrixWorkflow, Active: true}

	workflowRepo.On("ListActiveByProject", mock.Anything, projectID).Return([]*domain.Workflow{workflow}, nil)
	// A concurrent event for the same workflow takes number 1 first; the
	// insert conflicts and the run is retried with a recomputed number.
	runRepo.On("NextNumber", mock.Anything, workflow.ID).Return(1, nil).Once()
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(domain.ErrRunNumberConflict).Once()
	runRepo.On("NextNumber", mock.Anything, workflow.ID).Return(2, nil).Once()
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(nil).Once()
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job")).Return(nil)
	jobRepo.On("CreateSteps", mock.Anything, mock.AnythingOfType("[]*domain.StepResult")).Return(nil)

	runs, err := svc.HandleEvent(context.Background(), projectID, domain.Event{Kind: domain.EventPush, Branch: "main"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Number)
	runRepo.AssertExpectations(t)
}

func TestRunService_HandleEvent_NoMatch(t *testing.T) {
	workflowRepo, _, _, svc := newRunService()

	projectID := uuid.New()
	workflow := &domain.Workflow{ID: uuid.New(), Source: matrixWorkflow, Active: true}
	workflowRepo.On("ListActiveByProject", mock.Anything, projectID).Return([]*domain.Workflow{workflow}, nil)

	runs, err := svc.HandleEvent(context.Background(), projectID, domain.Event{Kind: domain.EventPush, Branch: "feature/x"})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunService_HandleEvent_SkipsUnparsableWorkflow(t *testing.T) {
	workflowRepo, _, _, svc := newRunService()

	projectID := uuid.New()
	broken := &domain.Workflow{ID: uuid.New(), Name: "broken", Source: "name: broken\n", Active: true}
	workflowRepo.On("ListActiveByProject", mock.Anything, projectID).Return([]*domain.Workflow{broken}, nil)

	runs, err := svc.HandleEvent(context.Background(), projectID, domain.Event{Kind: domain.EventPush, Branch: "main"})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunService_HandleEvent_MissingBranch(t *testing.T) {
	_, _, _, svc := newRunService()

	_, err := svc.HandleEvent(context.Background(), uuid.New(), domain.Event{Kind: domain.EventPush})
	assert.ErrorIs(t, err, domain.ErrMissingBranch)

	_, err = svc.HandleEvent(context.Background(), uuid.New(), domain.Event{Kind: "deployment"})
	assert.ErrorIs(t, err, domain.ErrInvalidEventKind)
}

func TestRunService_Dispatch_InactiveWorkflow(t *testing.T) {
	workflowRepo, _, _, svc := newRunService()

	projectID := uuid.New()
	id := uuid.New()
	workflowRepo.On("GetByID", mock.Anything, projectID, id).Return(&domain.Workflow{ID: id, Source: matrixWorkflow, Active: false}, nil)

	_, err := svc.Dispatch(context.Background(), projectID, id, "main", "", "dev@example.com")
	assert.ErrorIs(t, err, domain.ErrWorkflowInactive)
}

func TestRunService_Dispatch_IgnoresTriggerFilters(t *testing.T) {
	workflowRepo, runRepo, jobRepo, svc := newRunService()

	projectID := uuid.New()
	id := uuid.New()
	workflow := &domain.Workflow{ID: id, ProjectID: projectID, Source: matrixWorkflow, Active: true}

	workflowRepo.On("GetByID", mock.Anything, projectID, id).Return(workflow, nil)
	runRepo.On("NextNumber", mock.Anything, id).Return(4, nil)
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job")).Return(nil)
	jobRepo.On("CreateSteps", mock.Anything, mock.AnythingOfType("[]*domain.StepResult")).Return(nil)

	// The workflow has no workflow_dispatch trigger; manual dispatch starts
	// a run anyway.
	run, err := svc.Dispatch(context.Background(), projectID, id, "feature/x", "abc123", "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, 4, run.Number)
	assert.Equal(t, domain.EventDispatch, run.Event.Kind)
	assert.Equal(t, "feature/x", run.Event.Branch)
}

func TestRunService_Cancel(t *testing.T) {
	_, runRepo, jobRepo, svc := newRunService()

	projectID := uuid.New()
	runID := uuid.New()
	runRepo.On("GetByID", mock.Anything, projectID, runID).Return(&domain.WorkflowRun{ID: runID, Status: domain.RunStatusRunning}, nil)
	jobRepo.On("CancelQueuedByRun", mock.Anything, runID).Return(3, nil)
	runRepo.On("UpdateStatus", mock.Anything, runID, domain.RunStatusCanceled, mock.Anything, mock.Anything).Return(nil)

	assert.NoError(t, svc.Cancel(context.Background(), projectID, runID))
	runRepo.AssertExpectations(t)
	jobRepo.AssertExpectations(t)
}

func TestRunService_Cancel_AlreadyFinished(t *testing.T) {
	_, runRepo, jobRepo, svc := newRunService()

	projectID := uuid.New()
	runID := uuid.New()
	runRepo.On("GetByID", mock.Anything, projectID, runID).Return(&domain.WorkflowRun{ID: runID, Status: domain.RunStatusSucceeded}, nil)

	err := svc.Cancel(context.Background(), projectID, runID)
	assert.ErrorIs(t, err, domain.ErrRunAlreadyFinished)
	jobRepo.AssertNotCalled(t, "CancelQueuedByRun")
}

func TestRunService_OnJobFinished_FailFastCancelsSiblings(t *testing.T) {
	_, runRepo, jobRepo, svc := newRunService()

	runID := uuid.New()
	failed := &domain.Job{ID: uuid.New(), RunID: runID, Status: domain.JobStatusFailed, FailFast: true}

	jobRepo.On("CancelQueuedByRun", mock.Anything, runID).Return(2, nil)
	jobRepo.On("ListByRun", mock.Anything, runID).Return([]*domain.Job{
		failed,
		{Status: domain.JobStatusCanceled},
		{Status: domain.JobStatusCanceled},
	}, nil)
	runRepo.On("UpdateStatus", mock.Anything, runID, domain.RunStatusFailed, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.OnJobFinished(context.Background(), failed))
	jobRepo.AssertExpectations(t)
	runRepo.AssertExpectations(t)
}

func TestRunService_OnJobFinished_NoFailFastLetsSiblingsRun(t *testing.T) {
	_, runRepo, jobRepo, svc := newRunService()

	runID := uuid.New()
	failed := &domain.Job{ID: uuid.New(), RunID: runID, Status: domain.JobStatusFailed, FailFast: false}

	jobRepo.On("ListByRun", mock.Anything, runID).Return([]*domain.Job{
		failed,
		{Status: domain.JobStatusQueued},
	}, nil)

	require.NoError(t, svc.OnJobFinished(context.Background(), failed))
	jobRepo.AssertNotCalled(t, "CancelQueuedByRun")
	runRepo.AssertNotCalled(t, "UpdateStatus")
}

func TestRunService_OnJobFinished_FinalizesRun(t *testing.T) {
	_, runRepo, jobRepo, svc := newRunService()

	runID := uuid.New()
	last := &domain.Job{ID: uuid.New(), RunID: runID, Status: domain.JobStatusSucceeded}

	jobRepo.On("ListByRun", mock.Anything, runID).Return([]*domain.Job{
		{Status: domain.JobStatusSucceeded},
		last,
	}, nil)
	runRepo.On("UpdateStatus", mock.Anything, runID, domain.RunStatusSucceeded, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.OnJobFinished(context.Background(), last))
	runRepo.AssertExpectations(t)
}

func TestRunService_OnJobStarted(t *testing.T) {
	_, runRepo, _, svc := newRunService()

	runID := uuid.New()
	runRepo.On("MarkRunning", mock.Anything, runID, mock.AnythingOfType("time.Time")).Return(nil)

	require.NoError(t, svc.OnJobStarted(context.Background(), &domain.Job{RunID: runID}))
	runRepo.AssertExpectations(t)
}

func TestAggregateRunStatus(t *testing.T) {
	tests := []struct {
		name string
		jobs []domain.JobStatus
		want domain.RunStatus
	}{
		{"all succeeded", []domain.JobStatus{domain.JobStatusSucceeded, domain.JobStatusSucceeded}, domain.RunStatusSucceeded},
		{"skipped counts as success", []domain.JobStatus{domain.JobStatusSucceeded, domain.JobStatusSkipped}, domain.RunStatusSucceeded},
		{"failed wins over canceled", []domain.JobStatus{domain.JobStatusFailed, domain.JobStatusCanceled}, domain.RunStatusFailed},
		{"canceled without failure", []domain.JobStatus{domain.JobStatusSucceeded, domain.JobStatusCanceled}, domain.RunStatusCanceled},
		{"still running", []domain.JobStatus{domain.JobStatusSucceeded, domain.JobStatusRunning}, domain.RunStatusRunning},
		{"queued is non-terminal", []domain.JobStatus{domain.JobStatusFailed, domain.JobStatusQueued}, domain.RunStatusRunning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.AggregateRunStatus(tt.jobs))
		})
	}
}

func TestRunService_CreateJob_StepNamesRendered(t *testing.T) {
	workflowRepo, runRepo, jobRepo, svc := newRunService()

	projectID := uuid.New()
	id := uuid.New()
	source := `
name: steps
on: push
jobs:
  test:
    strategy:
      matrix:
        py: ["3.8"]
    steps:
      - name: Test py ${{ matrix.py }}
        run: pytest
      - run: echo done
`
	workflow := &domain.Workflow{ID: id, ProjectID: projectID, Source: source, Active: true}
	workflowRepo.On("GetByID", mock.Anything, projectID, id).Return(workflow, nil)
	runRepo.On("NextNumber", mock.Anything, id).Return(1, nil)
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job")).Return(nil)

	var steps []*domain.StepResult
	jobRepo.On("CreateSteps", mock.Anything, mock.AnythingOfType("[]*domain.StepResult")).Run(func(args mock.Arguments) {
		steps = args.Get(1).([]*domain.StepResult)
	}).Return(nil)

	_, err := svc.Dispatch(context.Background(), projectID, id, "main", "", "")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "Test py 3.8", steps[0].Name)
	assert.Equal(t, "step 2", steps[1].Name)
	assert.Equal(t, domain.StepStatusQueued, steps[1].Status)
	assert.Equal(t, 1, steps[1].Index)
}

func TestRunService_RunStatus(t *testing.T) {
	_, runRepo, _, svc := newRunService()

	runID := uuid.New()
	runRepo.On("GetStatus", mock.Anything, runID).Return(domain.RunStatusCanceled, nil)

	status, err := svc.RunStatus(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCanceled, status)
}
