package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forgeci/internal/core/domain"
	output "forgeci/internal/core/ports/output"
)

func TestRunStep_CapturesOutput(t *testing.T) {
	e := NewExecutor()

	outcome, err := e.RunStep(context.Background(), &domain.Job{}, output.StepRun{
		Name:    "hello",
		Command: "echo hello world",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, "hello world\n", string(outcome.Log))
}

func TestRunStep_NonZeroExit(t *testing.T) {
	e := NewExecutor()

	outcome, err := e.RunStep(context.Background(), &domain.Job{}, output.StepRun{
		Name:    "fails",
		Command: "echo boom >&2; exit 3",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.ExitCode)
	assert.Equal(t, "boom\n", string(outcome.Log))
}

func TestRunStep_EnvReachesCommand(t *testing.T) {
	e := NewExecutor()

	outcome, err := e.RunStep(context.Background(), &domain.Job{}, output.StepRun{
		Name:    "env",
		Command: `echo "$OE_LICENSE"`,
		Env:     map[string]string{"OE_LICENSE": "license-data"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, "license-data\n", string(outcome.Log))
}

func TestRunStep_Timeout(t *testing.T) {
	e := NewExecutor()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	outcome, err := e.RunStep(ctx, &domain.Job{}, output.StepRun{
		Name:    "slow",
		Command: "sleep 10",
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, -1, outcome.ExitCode)
	assert.Contains(t, string(outcome.Log), "timed out")
}
