package domain

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCanceled  RunStatus = "CANCELED"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusSkipped   JobStatus = "SKIPPED"
	JobStatusCanceled  JobStatus = "CANCELED"
)

type StepStatus string

const (
	StepStatusQueued    StepStatus = "QUEUED"
	StepStatusRunning   StepStatus = "RUNNING"
	StepStatusSucceeded StepStatus = "SUCCEEDED"
	StepStatusFailed    StepStatus = "FAILED"
	StepStatusSkipped   StepStatus = "SKIPPED"
)

type EventKind string

const (
	EventPush        EventKind = "push"
	EventPullRequest EventKind = "pull_request"
	EventSchedule    EventKind = "schedule"
	EventDispatch    EventKind = "workflow_dispatch"
)

// Event is a trigger event delivered to the service, either from a webhook,
// the cron scheduler, or a manual dispatch.
type Event struct {
	Kind      EventKind `json:"kind"`
	Branch    string    `json:"branch"`
	CommitSHA string    `json:"commit_sha"`
	PRNumber  int       `json:"pr_number"`
	Actor     string    `json:"actor"`
}

// WorkflowRun is one execution of a workflow for a single trigger event.
type WorkflowRun struct {
	ID         uuid.UUID  `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	WorkflowID uuid.UUID  `json:"workflow_id"`
	Number     int        `json:"number"`
	Event      Event      `json:"event"`
	Status     RunStatus  `json:"status"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// Job is one matrix combination of a run. Name is the fully interpolated job
// name; Matrix holds the axis values the combination was expanded from. Key
// is the YAML key of the job template the combination came from, so the
// runner can find its step list when it claims the job.
type Job struct {
	ID         uuid.UUID         `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	RunID      uuid.UUID         `json:"run_id"`
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	RunsOn     string            `json:"runs_on"`
	Matrix     map[string]string `json:"matrix"`
	FailFast   bool              `json:"fail_fast"`
	Status     JobStatus         `json:"status"`
	StartedAt  *time.Time        `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at"`
}

// StepResult is the recorded outcome of one step of a job.
type StepResult struct {
	ID         uuid.UUID  `json:"id"`
	JobID      uuid.UUID  `json:"job_id"`
	Index      int        `json:"index"`
	Name       string     `json:"name"`
	Status     StepStatus `json:"status"`
	ExitCode   int        `json:"exit_code"`
	Log        string     `json:"log"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// IsTerminal reports whether a job has finished, one way or another.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusSkipped, JobStatusCanceled:
		return true
	default:
		return false
	}
}

func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCanceled:
		return true
	default:
		return false
	}
}

// AggregateRunStatus derives the run status from its job statuses. Failed
// wins over canceled; a run succeeds only when every job succeeded or was
// skipped. Returns RUNNING while any job is non-terminal.
func AggregateRunStatus(jobs []JobStatus) RunStatus {
	failed := false
	canceled := false
	for _, st := range jobs {
		if !st.IsTerminal() {
			return RunStatusRunning
		}
		switch st {
		case JobStatusFailed:
			failed = true
		case JobStatusCanceled:
			canceled = true
		}
	}
	if failed {
		return RunStatusFailed
	}
	if canceled {
		return RunStatusCanceled
	}
	return RunStatusSucceeded
}
