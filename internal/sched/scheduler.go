// Package sched runs the background jobs: the SLA breach sweep and the
// intake mailbox poll. Jobs are registered on cron expressions and must
// be re-entrant; the scheduler does not serialize overlapping runs.
package sched

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is a named re-entrant unit of scheduled work.
type Job struct {
	Name string
	Spec string // cron expression, robfig/cron syntax (incl. @every)
	Run  func(ctx context.Context) error
}

// Scheduler wraps robfig/cron with context plumbing and logging.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	jobs   []Job
}

// New creates an empty Scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start schedules all registered jobs and runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		job := job
		_, err := s.cron.AddFunc(job.Spec, func() {
			s.execute(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("scheduling job %s (%s): %w", job.Name, job.Spec, err)
		}
		s.logger.Info("scheduled job", "job", job.Name, "spec", job.Spec)
	}

	s.cron.Start()

	<-ctx.Done()

	// Let in-flight jobs finish before returning.
	<-s.cron.Stop().Done()
	return ctx.Err()
}

func (s *Scheduler) execute(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "job", job.Name, "panic", r)
		}
	}()

	if err := job.Run(ctx); err != nil {
		s.logger.Warn("job failed", "job", job.Name, "error", err)
		return
	}
	s.logger.Debug("job completed", "job", job.Name)
}
