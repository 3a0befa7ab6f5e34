package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"forgeci/internal/core/domain"
	ports "forgeci/internal/core/ports/output"
	"forgeci/internal/core/spec"
)

type RunService struct {
	workflowRepo ports.WorkflowRepository
	runRepo      ports.RunRepository
	jobRepo      ports.JobRepository
}

func NewRunService(workflowRepo ports.WorkflowRepository, runRepo ports.RunRepository, jobRepo ports.JobRepository) *RunService {
	return &RunService{workflowRepo: workflowRepo, runRepo: runRepo, jobRepo: jobRepo}
}

// HandleEvent creates a run for every active workflow in the project whose
// triggers match the event. A workflow whose stored source no longer parses
// is logged and skipped rather than blocking the rest of the project.
func (s *RunService) HandleEvent(ctx context.Context, projectID uuid.UUID, ev domain.Event) ([]*domain.WorkflowRun, error) {
	if err := validateEvent(ev); err != nil {
		return nil, err
	}

	workflows, err := s.workflowRepo.ListActiveByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var runs []*domain.WorkflowRun
	for _, workflow := range workflows {
		def, err := spec.Parse([]byte(workflow.Source))
		if err != nil {
			log.WithError(err).WithField("workflow", workflow.Name).Warn("skipping workflow with unparsable source")
			continue
		}
		if !def.Matches(ev) {
			continue
		}
		run, err := s.createRun(ctx, workflow, def, ev)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Dispatch starts a manual run of one workflow regardless of its trigger
// filters. The workflow must still be active.
func (s *RunService) Dispatch(ctx context.Context, projectID uuid.UUID, workflowID uuid.UUID, branch, commitSHA, actor string) (*domain.WorkflowRun, error) {
	workflow, err := s.workflowRepo.GetByID(ctx, projectID, workflowID)
	if err != nil {
		return nil, err
	}
	if !workflow.Active {
		return nil, domain.ErrWorkflowInactive
	}
	def, err := spec.Parse([]byte(workflow.Source))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
	}
	ev := domain.Event{Kind: domain.EventDispatch, Branch: branch, CommitSHA: commitSHA, Actor: actor}
	return s.createRun(ctx, workflow, def, ev)
}

// HandleSchedule is the scheduler entry point: it creates a run for one due
// workflow without re-checking branch filters.
func (s *RunService) HandleSchedule(ctx context.Context, workflow *domain.Workflow) (*domain.WorkflowRun, error) {
	def, err := spec.Parse([]byte(workflow.Source))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
	}
	return s.createRun(ctx, workflow, def, domain.Event{Kind: domain.EventSchedule})
}

// createRunAttempts bounds the retries when two events for the same workflow
// race for the same run number.
const createRunAttempts = 3

func (s *RunService) createRun(ctx context.Context, workflow *domain.Workflow, def *spec.Definition, ev domain.Event) (*domain.WorkflowRun, error) {
	now := time.Now()
	run := &domain.WorkflowRun{
		ID:         uuid.New(),
		CreatedAt:  now,
		UpdatedAt:  now,
		WorkflowID: workflow.ID,
		Event:      ev,
		Status:     domain.RunStatusQueued,
	}

	for attempt := 0; ; attempt++ {
		number, err := s.runRepo.NextNumber(ctx, workflow.ID)
		if err != nil {
			return nil, err
		}
		run.Number = number

		err = s.runRepo.Create(ctx, run)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrRunNumberConflict) && attempt < createRunAttempts-1 {
			continue
		}
		return nil, err
	}

	for _, jobSpec := range def.Jobs {
		var matrix *spec.Matrix
		if jobSpec.Strategy != nil {
			matrix = jobSpec.Strategy.Matrix
		}
		for _, row := range matrix.Expand() {
			if err := s.createJob(ctx, run, jobSpec, row, now); err != nil {
				return nil, err
			}
		}
	}

	log.WithFields(log.Fields{
		"workflow": workflow.Name,
		"run":      run.Number,
		"event":    ev.Kind,
	}).Info("run created")
	return run, nil
}

func (s *RunService) createJob(ctx context.Context, run *domain.WorkflowRun, jobSpec spec.JobSpec, row map[string]string, now time.Time) error {
	name, err := spec.RenderJobName(jobSpec, row)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
	}
	runsOn, err := spec.Render(jobSpec.RunsOn, spec.Context{Matrix: row})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
	}

	job := &domain.Job{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		RunID:     run.ID,
		Key:       jobSpec.Key,
		Name:      name,
		RunsOn:    runsOn,
		Matrix:    row,
		FailFast:  jobSpec.FailFastEnabled(),
		Status:    domain.JobStatusQueued,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return err
	}

	steps := make([]*domain.StepResult, 0, len(jobSpec.Steps))
	for i, stepSpec := range jobSpec.Steps {
		stepName := stepSpec.Name
		if stepName == "" {
			stepName = fmt.Sprintf("step %d", i+1)
		} else {
			stepName, err = spec.Render(stepName, spec.Context{Matrix: row})
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
			}
		}
		steps = append(steps, &domain.StepResult{
			ID:     uuid.New(),
			JobID:  job.ID,
			Index:  i,
			Name:   stepName,
			Status: domain.StepStatusQueued,
		})
	}
	return s.jobRepo.CreateSteps(ctx, steps)
}

func (s *RunService) Get(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.WorkflowRun, error) {
	return s.runRepo.GetByID(ctx, projectID, id)
}

func (s *RunService) List(ctx context.Context, filter ports.RunListFilter) ([]*domain.WorkflowRun, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.runRepo.List(ctx, filter)
}

func (s *RunService) ListJobs(ctx context.Context, projectID uuid.UUID, runID uuid.UUID) ([]*domain.Job, error) {
	if _, err := s.runRepo.GetByID(ctx, projectID, runID); err != nil {
		return nil, err
	}
	return s.jobRepo.ListByRun(ctx, runID)
}

// Cancel marks the run canceled and cancels its queued jobs. Running jobs
// observe the canceled run status at their next step boundary; the run's
// final timestamps are written once the last of them drains.
func (s *RunService) Cancel(ctx context.Context, projectID uuid.UUID, runID uuid.UUID) error {
	run, err := s.runRepo.GetByID(ctx, projectID, runID)
	if err != nil {
		return err
	}
	if run.Status.IsTerminal() {
		return domain.ErrRunAlreadyFinished
	}

	if _, err := s.jobRepo.CancelQueuedByRun(ctx, runID); err != nil {
		return err
	}
	now := time.Now()
	return s.runRepo.UpdateStatus(ctx, runID, domain.RunStatusCanceled, run.StartedAt, &now)
}

// RunStatus looks up the current status without project scoping; the runner
// polls it between steps to observe cancellation.
func (s *RunService) RunStatus(ctx context.Context, runID uuid.UUID) (domain.RunStatus, error) {
	return s.runRepo.GetStatus(ctx, runID)
}

// OnJobStarted flips a queued run to RUNNING when its first job is claimed.
func (s *RunService) OnJobStarted(ctx context.Context, job *domain.Job) error {
	return s.runRepo.MarkRunning(ctx, job.RunID, time.Now())
}

// OnJobFinished applies fail-fast and finalizes the run once every job is
// terminal. Called by the runner after each job reaches a terminal state.
func (s *RunService) OnJobFinished(ctx context.Context, job *domain.Job) error {
	if job.Status == domain.JobStatusFailed && job.FailFast {
		if n, err := s.jobRepo.CancelQueuedByRun(ctx, job.RunID); err != nil {
			return err
		} else if n > 0 {
			log.WithFields(log.Fields{"run": job.RunID, "canceled": n}).Info("fail-fast canceled queued sibling jobs")
		}
	}

	jobs, err := s.jobRepo.ListByRun(ctx, job.RunID)
	if err != nil {
		return err
	}
	statuses := make([]domain.JobStatus, 0, len(jobs))
	for _, j := range jobs {
		statuses = append(statuses, j.Status)
	}
	agg := domain.AggregateRunStatus(statuses)
	if !agg.IsTerminal() {
		return nil
	}

	now := time.Now()
	return s.runRepo.UpdateStatus(ctx, job.RunID, agg, nil, &now)
}

func validateEvent(ev domain.Event) error {
	switch ev.Kind {
	case domain.EventPush, domain.EventPullRequest:
		if ev.Branch == "" {
			return domain.ErrMissingBranch
		}
		return nil
	case domain.EventSchedule, domain.EventDispatch:
		return nil
	default:
		return domain.ErrInvalidEventKind
	}
}
