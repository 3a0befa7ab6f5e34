// Package runner executes queued jobs: a worker pool claims jobs from the
// queue and walks their steps through the configured executor.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"forgeci/internal/core/domain"
	ports "forgeci/internal/core/ports/output"
	"forgeci/internal/core/services"
)

type Pool struct {
	workers      int
	pollInterval time.Duration
	stepTimeout  time.Duration

	jobs      ports.JobRepository
	workflows ports.WorkflowRepository
	runs      *services.RunService
	secrets   *services.SecretService
	executor  ports.JobExecutor
}

func NewPool(
	workers int,
	pollInterval, stepTimeout time.Duration,
	jobs ports.JobRepository,
	workflows ports.WorkflowRepository,
	runs *services.RunService,
	secrets *services.SecretService,
	executor ports.JobExecutor,
) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if stepTimeout <= 0 {
		stepTimeout = 30 * time.Minute
	}
	return &Pool{
		workers:      workers,
		pollInterval: pollInterval,
		stepTimeout:  stepTimeout,
		jobs:         jobs,
		workflows:    workflows,
		runs:         runs,
		secrets:      secrets,
		executor:     executor,
	}
}

// Run blocks until ctx is canceled. Workers claim one job at a time; a job
// claimed before shutdown finishes its current step, then observes the
// canceled context and drains.
func (p *Pool) Run(ctx context.Context) {
	log.WithFields(log.Fields{"workers": p.workers, "executor": p.executor.Name()}).Info("runner pool started")

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.workerLoop(ctx, id)
		}(i)
	}
	wg.Wait()
	log.Info("runner pool stopped")
}

func (p *Pool) workerLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.jobs.ClaimQueued(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrJobNotClaimable) && ctx.Err() == nil {
				log.WithError(err).Error("claim job failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		log.WithFields(log.Fields{"worker": id, "job": job.Name}).Info("job claimed")
		p.executeJob(ctx, job)
	}
}
