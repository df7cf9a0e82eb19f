// Package scheduler runs a job repeatedly with a fixed delay between the end
// of one run and the start of the next.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"sjsage522/promoworker/logger"
)

// Job is one unit of scheduled work. It should return promptly once ctx is done.
type Job func(ctx context.Context)

// Scheduler runs a job immediately and then at the times given by a
// schedule, evaluated from each run's completion. Runs never overlap.
type Scheduler struct {
	schedule cron.Schedule
	job      Job
	now      func() time.Time
	log      *logger.Logger
}

// New creates a scheduler
func New(schedule cron.Schedule, job Job) *Scheduler {
	return &Scheduler{
		schedule: schedule,
		job:      job,
		now:      time.Now,
		log:      logger.ForScheduler(),
	}
}

// Start blocks running the job until ctx is cancelled, then returns nil
func (s *Scheduler) Start(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		start := s.now()
		s.job(ctx)
		completed := s.now()

		next := s.schedule.Next(completed)
		s.log.Info().
			Dur("elapsed", completed.Sub(start)).
			Time("next_run", next).
			Msg("Run completed")

		if next.IsZero() {
			s.log.Warn().Msg("Schedule has no further runs")
			<-ctx.Done()
			return nil
		}

		timer := time.NewTimer(next.Sub(completed))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
