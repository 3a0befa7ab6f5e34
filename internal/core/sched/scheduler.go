// Package sched fires schedule-triggered workflow runs. A single loop wakes
// on an interval, walks the active workflows and creates a run for every cron
// entry that became due since the previous wake-up.
package sched

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"forgeci/internal/core/domain"
	ports "forgeci/internal/core/ports/output"
	"forgeci/internal/core/services"
	"forgeci/internal/core/spec"
)

type Scheduler struct {
	interval  time.Duration
	workflows ports.WorkflowRepository
	runs      *services.RunService

	// lastTick bounds the due window. Crons that fire between ticks are
	// collapsed into one run per workflow per tick, which matches the daily
	// cadence schedules are used for.
	lastTick time.Time
	now      func() time.Time
}

func New(interval time.Duration, workflows ports.WorkflowRepository, runs *services.RunService) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		interval:  interval,
		workflows: workflows,
		runs:      runs,
		now:       time.Now,
	}
}

// Run blocks until ctx is canceled. The first window opens at startup, so
// schedules that were due while the service was down are not replayed.
func (s *Scheduler) Run(ctx context.Context) {
	log.WithField("interval", s.interval).Info("scheduler started")
	s.lastTick = s.now()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick fires runs for every workflow with a cron entry due in the window
// (lastTick, now]. Exported so tests can drive the clock directly.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	workflows, err := s.workflows.ListActive(ctx)
	if err != nil {
		log.WithError(err).Error("scheduler: list active workflows failed")
		return
	}

	for _, workflow := range workflows {
		if s.due(workflow, now) {
			if _, err := s.runs.HandleSchedule(ctx, workflow); err != nil {
				log.WithError(err).WithField("workflow", workflow.Name).Error("scheduled run failed to start")
			}
		}
	}
	s.lastTick = now
}

func (s *Scheduler) due(workflow *domain.Workflow, now time.Time) bool {
	def, err := spec.Parse([]byte(workflow.Source))
	if err != nil {
		log.WithError(err).WithField("workflow", workflow.Name).Warn("skipping workflow with unparsable source")
		return false
	}
	for _, entry := range def.On.Schedule {
		schedule, err := cron.ParseStandard(entry.Cron)
		if err != nil {
			// Validate rejects bad crons at registration; a stored one can
			// still go stale if the parser ever tightens.
			log.WithError(err).WithField("workflow", workflow.Name).Warn("skipping invalid cron entry")
			continue
		}
		next := schedule.Next(s.lastTick)
		if !next.After(now) {
			return true
		}
	}
	return false
}
