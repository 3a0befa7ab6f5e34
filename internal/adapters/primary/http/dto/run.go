package dto

import (
	"time"

	"github.com/google/uuid"

	"forgeci/internal/core/domain"
)

type EventRequest struct {
	Kind      string `json:"kind" binding:"required"`
	Branch    string `json:"branch"`
	CommitSHA string `json:"commit_sha"`
	PRNumber  int    `json:"pr_number"`
	Actor     string `json:"actor"`
}

type DispatchRequest struct {
	Branch    string `json:"branch"`
	CommitSHA string `json:"commit_sha"`
	Actor     string `json:"actor"`
}

type EventResponse struct {
	Kind      string `json:"kind"`
	Branch    string `json:"branch,omitempty"`
	CommitSHA string `json:"commit_sha,omitempty"`
	PRNumber  int    `json:"pr_number,omitempty"`
	Actor     string `json:"actor,omitempty"`
}

type RunResponse struct {
	ID         uuid.UUID     `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	WorkflowID uuid.UUID     `json:"workflow_id"`
	Number     int           `json:"number"`
	Event      EventResponse `json:"event"`
	Status     string        `json:"status"`
	StartedAt  *time.Time    `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at"`
}

type ListRunsResponse struct {
	Items      []RunResponse `json:"items"`
	Total      int           `json:"total"`
	PageSize   int           `json:"page_size"`
	NextOffset int           `json:"next_offset"`
}

type JobResponse struct {
	ID         uuid.UUID         `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	RunID      uuid.UUID         `json:"run_id"`
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	RunsOn     string            `json:"runs_on"`
	Matrix     map[string]string `json:"matrix"`
	FailFast   bool              `json:"fail_fast"`
	Status     string            `json:"status"`
	StartedAt  *time.Time        `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at"`
}

type StepResponse struct {
	ID         uuid.UUID  `json:"id"`
	Index      int        `json:"index"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	ExitCode   int        `json:"exit_code"`
	Log        string     `json:"log,omitempty"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

func ToRunResponse(run *domain.WorkflowRun) RunResponse {
	return RunResponse{
		ID:         run.ID,
		CreatedAt:  run.CreatedAt,
		UpdatedAt:  run.UpdatedAt,
		WorkflowID: run.WorkflowID,
		Number:     run.Number,
		Event: EventResponse{
			Kind:      string(run.Event.Kind),
			Branch:    run.Event.Branch,
			CommitSHA: run.Event.CommitSHA,
			PRNumber:  run.Event.PRNumber,
			Actor:     run.Event.Actor,
		},
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}

func ToJobResponse(job *domain.Job) JobResponse {
	return JobResponse{
		ID:         job.ID,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
		RunID:      job.RunID,
		Key:        job.Key,
		Name:       job.Name,
		RunsOn:     job.RunsOn,
		Matrix:     job.Matrix,
		FailFast:   job.FailFast,
		Status:     string(job.Status),
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
}

func ToStepResponse(step *domain.StepResult) StepResponse {
	return StepResponse{
		ID:         step.ID,
		Index:      step.Index,
		Name:       step.Name,
		Status:     string(step.Status),
		ExitCode:   step.ExitCode,
		Log:        step.Log,
		StartedAt:  step.StartedAt,
		FinishedAt: step.FinishedAt,
	}
}
