package sched

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"forgeci/internal/core/domain"
	"forgeci/internal/core/services"
	"forgeci/internal/testutil"
)

const nightlyWorkflow = `
name: nightly
on:
  schedule:
    - cron: "0 0 * * *"
jobs:
  test:
    runs-on: ubuntu-latest
    steps:
      - run: make test
`

const pushOnlyWorkflow = `
name: push-only
on:
  push:
    branches: [main]
jobs:
  test:
    runs-on: ubuntu-latest
    steps:
      - run: make test
`

func newTestScheduler(workflows []*domain.Workflow) (*Scheduler, *testutil.MockRunRepo, *testutil.MockJobRepo) {
	workflowRepo := new(testutil.MockWorkflowRepo)
	runRepo := new(testutil.MockRunRepo)
	jobRepo := new(testutil.MockJobRepo)
	runs := services.NewRunService(workflowRepo, runRepo, jobRepo)

	workflowRepo.On("ListActive", mock.Anything).Return(workflows, nil)
	return New(time.Minute, workflowRepo, runs), runRepo, jobRepo
}

func TestScheduler_Tick_FiresAcrossMidnight(t *testing.T) {
	workflow := &domain.Workflow{ID: uuid.New(), Name: "nightly", Source: nightlyWorkflow, Active: true}
	s, runRepo, jobRepo := newTestScheduler([]*domain.Workflow{workflow})

	runRepo.On("NextNumber", mock.Anything, workflow.ID).Return(1, nil)
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job")).Return(nil)
	jobRepo.On("CreateSteps", mock.Anything, mock.AnythingOfType("[]*domain.StepResult")).Return(nil)

	// Window 23:59:30 -> 00:00:30 crosses the midnight cron.
	s.lastTick = time.Date(2026, 3, 1, 23, 59, 30, 0, time.UTC)
	s.now = func() time.Time { return time.Date(2026, 3, 2, 0, 0, 30, 0, time.UTC) }

	s.Tick(context.Background())

	runRepo.AssertCalled(t, "Create", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun"))
	created := runRepo.Calls[1].Arguments.Get(1).(*domain.WorkflowRun)
	assert.Equal(t, domain.EventSchedule, created.Event.Kind)
	assert.Equal(t, s.now(), s.lastTick)
}

func TestScheduler_Tick_NotDueInsideDay(t *testing.T) {
	workflow := &domain.Workflow{ID: uuid.New(), Name: "nightly", Source: nightlyWorkflow, Active: true}
	s, runRepo, _ := newTestScheduler([]*domain.Workflow{workflow})

	s.lastTick = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 14, 1, 0, 0, time.UTC) }

	s.Tick(context.Background())
	runRepo.AssertNotCalled(t, "Create")
}

func TestScheduler_Tick_IgnoresWorkflowsWithoutSchedule(t *testing.T) {
	workflow := &domain.Workflow{ID: uuid.New(), Name: "push-only", Source: pushOnlyWorkflow, Active: true}
	s, runRepo, _ := newTestScheduler([]*domain.Workflow{workflow})

	s.lastTick = time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	s.now = func() time.Time { return time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC) }

	s.Tick(context.Background())
	runRepo.AssertNotCalled(t, "Create")
}

func TestScheduler_Tick_CollapsesMultipleDueFirings(t *testing.T) {
	src := `
name: hourly
on:
  schedule:
    - cron: "0 * * * *"
jobs:
  test:
    runs-on: ubuntu-latest
    steps:
      - run: make test
`
	workflow := &domain.Workflow{ID: uuid.New(), Name: "hourly", Source: src, Active: true}
	s, runRepo, jobRepo := newTestScheduler([]*domain.Workflow{workflow})

	runRepo.On("NextNumber", mock.Anything, workflow.ID).Return(1, nil)
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(nil).Once()
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job")).Return(nil)
	jobRepo.On("CreateSteps", mock.Anything, mock.AnythingOfType("[]*domain.StepResult")).Return(nil)

	// Three hourly firings fall inside the window; one run is created.
	s.lastTick = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }

	s.Tick(context.Background())
	runRepo.AssertExpectations(t)
}

func TestNew_DefaultInterval(t *testing.T) {
	s := New(0, new(testutil.MockWorkflowRepo), nil)
	assert.Equal(t, time.Minute, s.interval)
}
