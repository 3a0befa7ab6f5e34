package ports

import (
	"context"
	"time"

	"forgeci/internal/core/domain"
)

// StepRun is one fully rendered step handed to an executor: the command,
// the merged environment and the runner label the job asked for.
type StepRun struct {
	Name    string
	Command string
	Env     map[string]string
	RunsOn  string
	Timeout time.Duration
}

// StepOutcome is what the executor observed. A non-zero ExitCode is a step
// failure; a non-nil error from RunStep means the step could not be run at
// all (infrastructure problem, not a test failure).
type StepOutcome struct {
	ExitCode int
	Log      []byte
}

// JobExecutor runs rendered steps somewhere: on the host, or in a pod.
type JobExecutor interface {
	// Name identifies the executor in logs ("local", "kubernetes").
	Name() string

	RunStep(ctx context.Context, job *domain.Job, step StepRun) (*StepOutcome, error)
}
