package runner

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"forgeci/internal/core/domain"
	ports "forgeci/internal/core/ports/output"
	"forgeci/internal/core/spec"
)

// executeJob walks a claimed job through its steps. Steps run sequentially;
// the first failure flips the job into the failed path, where remaining
// steps are skipped unless their condition asks for failure() or always().
// Cancellation is observed at step boundaries: the current step finishes,
// the rest are skipped.
func (p *Pool) executeJob(ctx context.Context, job *domain.Job) {
	workflow, err := p.workflows.GetByRunID(ctx, job.RunID)
	if err != nil {
		p.abortJob(ctx, job, "load workflow: "+err.Error())
		return
	}
	def, err := spec.Parse([]byte(workflow.Source))
	if err != nil {
		p.abortJob(ctx, job, "parse workflow: "+err.Error())
		return
	}
	jobSpec, ok := def.Job(job.Key)
	if !ok {
		p.abortJob(ctx, job, "job template "+job.Key+" no longer exists in the workflow")
		return
	}
	steps, err := p.jobs.ListSteps(ctx, job.ID)
	if err != nil || len(steps) != len(jobSpec.Steps) {
		p.abortJob(ctx, job, "load steps: step records do not match the job template")
		return
	}

	if err := p.runs.OnJobStarted(ctx, job); err != nil {
		log.WithError(err).WithField("job", job.Name).Error("mark run running failed")
	}

	secrets, err := p.resolveSecrets(ctx, workflow.ProjectID, def, jobSpec)
	if err != nil {
		p.failFirstStep(ctx, job, steps, err.Error())
		return
	}

	renderCtx := spec.Context{Matrix: job.Matrix, Secrets: secrets}

	canceled := false
	failed := false
	for i, stepSpec := range jobSpec.Steps {
		step := steps[i]

		if !canceled {
			if st, err := p.runs.RunStatus(ctx, job.RunID); err == nil && st == domain.RunStatusCanceled {
				canceled = true
			}
		}
		if canceled {
			p.finishStep(ctx, step, domain.StepStatusSkipped, 0, "")
			continue
		}

		runStep, err := spec.EvalCondition(stepSpec.If, spec.CondContext{Matrix: job.Matrix, Failed: failed})
		if err != nil {
			failed = true
			p.finishStep(ctx, step, domain.StepStatusFailed, -1, "evaluate condition: "+err.Error())
			continue
		}
		if !runStep {
			p.finishStep(ctx, step, domain.StepStatusSkipped, 0, "")
			continue
		}

		outcome := p.runStep(ctx, job, def, jobSpec, stepSpec, step, renderCtx)
		if outcome != nil && outcome.ExitCode != 0 {
			failed = true
		}
	}

	status := domain.JobStatusSucceeded
	if canceled {
		status = domain.JobStatusCanceled
	} else if failed {
		status = domain.JobStatusFailed
	}
	p.finishJob(ctx, job, status)
}

// runStep renders one step and hands it to the executor. Returns nil when
// the step could not even be rendered; that counts as a failure.
func (p *Pool) runStep(ctx context.Context, job *domain.Job, def *spec.Definition, jobSpec spec.JobSpec, stepSpec spec.StepSpec, step *domain.StepResult, renderCtx spec.Context) *ports.StepOutcome {
	command, err := spec.Render(stepSpec.Run, renderCtx)
	if err != nil {
		p.finishStep(ctx, step, domain.StepStatusFailed, -1, "render command: "+err.Error())
		return nil
	}
	env, err := p.renderEnv(def, jobSpec, stepSpec, renderCtx)
	if err != nil {
		p.finishStep(ctx, step, domain.StepStatusFailed, -1, "render env: "+err.Error())
		return nil
	}

	now := time.Now()
	step.Status = domain.StepStatusRunning
	step.StartedAt = &now
	if err := p.jobs.UpdateStep(ctx, step); err != nil {
		log.WithError(err).WithField("step", step.Name).Error("mark step running failed")
	}

	timeout := p.stepTimeout
	if stepSpec.TimeoutMinutes > 0 {
		timeout = time.Duration(stepSpec.TimeoutMinutes) * time.Minute
	} else if jobSpec.TimeoutMinutes > 0 {
		timeout = time.Duration(jobSpec.TimeoutMinutes) * time.Minute
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome, err := p.executor.RunStep(stepCtx, job, ports.StepRun{
		Name:    step.Name,
		Command: command,
		Env:     env,
		RunsOn:  job.RunsOn,
		Timeout: timeout,
	})
	if err != nil {
		p.finishStep(ctx, step, domain.StepStatusFailed, -1, "executor: "+err.Error())
		return &ports.StepOutcome{ExitCode: -1}
	}

	logText := redact(string(outcome.Log), renderCtx.Secrets)
	status := domain.StepStatusSucceeded
	if outcome.ExitCode != 0 {
		status = domain.StepStatusFailed
	}
	p.finishStep(ctx, step, status, outcome.ExitCode, logText)
	return outcome
}

// renderEnv merges workflow, job and step env, later levels winning, with
// matrix and secret placeholders resolved.
func (p *Pool) renderEnv(def *spec.Definition, jobSpec spec.JobSpec, stepSpec spec.StepSpec, renderCtx spec.Context) (map[string]string, error) {
	env := make(map[string]string)
	for _, level := range []map[string]string{def.Env, jobSpec.Env, stepSpec.Env} {
		for k, v := range level {
			rendered, err := spec.Render(v, renderCtx)
			if err != nil {
				return nil, err
			}
			env[k] = rendered
		}
	}
	return env, nil
}

// resolveSecrets fetches only the secrets the job actually references, so a
// job that never names a secret runs fine in a project with none.
func (p *Pool) resolveSecrets(ctx context.Context, projectID uuid.UUID, def *spec.Definition, jobSpec spec.JobSpec) (map[string]string, error) {
	var names []string
	seen := make(map[string]bool)
	collect := func(s string) {
		for _, name := range spec.SecretNames(s) {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	for _, v := range def.Env {
		collect(v)
	}
	for _, v := range jobSpec.Env {
		collect(v)
	}
	for _, stepSpec := range jobSpec.Steps {
		collect(stepSpec.Run)
		for _, v := range stepSpec.Env {
			collect(v)
		}
	}
	if len(names) == 0 {
		return map[string]string{}, nil
	}
	return p.secrets.Resolve(ctx, projectID, names)
}

func redact(logText string, secrets map[string]string) string {
	for _, v := range secrets {
		if v == "" {
			continue
		}
		logText = strings.ReplaceAll(logText, v, "***")
	}
	return logText
}

func (p *Pool) finishStep(ctx context.Context, step *domain.StepResult, status domain.StepStatus, exitCode int, logText string) {
	now := time.Now()
	step.Status = status
	step.ExitCode = exitCode
	if logText != "" {
		step.Log = logText
	}
	if step.StartedAt == nil && status != domain.StepStatusSkipped {
		step.StartedAt = &now
	}
	step.FinishedAt = &now
	if err := p.jobs.UpdateStep(ctx, step); err != nil {
		log.WithError(err).WithField("step", step.Name).Error("record step result failed")
	}
}

func (p *Pool) finishJob(ctx context.Context, job *domain.Job, status domain.JobStatus) {
	now := time.Now()
	if err := p.jobs.UpdateStatus(ctx, job.ID, status, job.StartedAt, &now); err != nil {
		log.WithError(err).WithField("job", job.Name).Error("record job status failed")
	}
	job.Status = status
	job.FinishedAt = &now
	if err := p.runs.OnJobFinished(ctx, job); err != nil {
		log.WithError(err).WithField("job", job.Name).Error("finalize run failed")
	}
	log.WithFields(log.Fields{"job": job.Name, "status": status}).Info("job finished")
}

// abortJob fails a job that could not start at all and skips its steps.
func (p *Pool) abortJob(ctx context.Context, job *domain.Job, reason string) {
	log.WithFields(log.Fields{"job": job.Name, "reason": reason}).Error("job aborted")
	steps, err := p.jobs.ListSteps(ctx, job.ID)
	if err == nil {
		p.failFirstStep(ctx, job, steps, reason)
		return
	}
	p.finishJob(ctx, job, domain.JobStatusFailed)
}

// failFirstStep records the failure reason on the first pending step, skips
// the rest and fails the job.
func (p *Pool) failFirstStep(ctx context.Context, job *domain.Job, steps []*domain.StepResult, reason string) {
	recorded := false
	for _, step := range steps {
		if step.Status != domain.StepStatusQueued {
			continue
		}
		if !recorded {
			p.finishStep(ctx, step, domain.StepStatusFailed, -1, reason)
			recorded = true
			continue
		}
		p.finishStep(ctx, step, domain.StepStatusSkipped, 0, "")
	}
	p.finishJob(ctx, job, domain.JobStatusFailed)
}
