// Package schedule recompiles the full file set on a fixed interval.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/interleave/internal/logfields"
)

// CompileFunc compiles the given input-relative files.
type CompileFunc func(ctx context.Context, files []string) error

// Scheduler wraps a gocron scheduler running one periodic compile job.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// New creates a scheduler. A nil logger uses slog.Default.
func New(logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Every schedules compile of files at interval. The job runs in singleton
// mode, so a run that is still compiling when the next tick fires makes that
// tick wait rather than overlap. It returns the job ID.
func (s *Scheduler) Every(ctx context.Context, interval time.Duration, files []string, compile CompileFunc) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive, got %s", interval)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.logger.Info("Running scheduled compile", logfields.Count(len(files)))
			if err := compile(ctx, files); err != nil {
				s.logger.Warn("Scheduled compile failed", logfields.Error(err))
			}
		}),
		gocron.WithName("scheduled-compile"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic compile job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for a running job to return.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// Run starts the scheduler and blocks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	return s.Stop()
}
