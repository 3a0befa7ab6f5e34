// Package local runs steps as shell commands on the host the service runs
// on. It is the development executor; the runs-on label is recorded but not
// enforced, since there is only one host to run on.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"forgeci/internal/core/domain"
	output "forgeci/internal/core/ports/output"
)

type Executor struct {
	shell string
}

func NewExecutor() *Executor {
	return &Executor{shell: "sh"}
}

var _ output.JobExecutor = (*Executor)(nil)

func (e *Executor) Name() string {
	return "local"
}

func (e *Executor) RunStep(ctx context.Context, job *domain.Job, step output.StepRun) (*output.StepOutcome, error) {
	cmd := exec.CommandContext(ctx, e.shell, "-c", step.Command)
	cmd.Env = os.Environ()
	for k, v := range step.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		// A killed process also surfaces as ExitError, so the deadline
		// check has to come first.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out = append(out, []byte("\nstep timed out after "+step.Timeout.String())...)
			return &output.StepOutcome{ExitCode: -1, Log: out}, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &output.StepOutcome{ExitCode: exitErr.ExitCode(), Log: out}, nil
		}
		return nil, fmt.Errorf("run step %q: %w", step.Name, err)
	}
	return &output.StepOutcome{ExitCode: 0, Log: out}, nil
}
