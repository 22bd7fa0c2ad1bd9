package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-lookup/internal/app"
)

// Refresher is the part of the controller the scheduler drives.
type Refresher interface {
	RefreshInBackground(ctx context.Context) app.State
}

// Scheduler periodically refreshes the displayed location.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Refresher
	interval  time.Duration
	logger    *slog.Logger

	// ctx is cancelled by Stop so an in-flight refresh is abandoned.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler. An interval <= 0 disables it.
func New(target Refresher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Enabled reports whether Start will schedule anything.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if !s.Enabled() {
		s.logger.Info("scheduler: refresh interval not set; periodic refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().WaitForSchedule().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: periodic refresh started", "interval", s.interval)
	return nil
}

func (s *Scheduler) run() {
	st := s.target.RefreshInBackground(s.ctx)
	s.logger.Debug("scheduler: refresh completed", "status", st.Status, "seq", st.Seq)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil && s.Enabled() {
		s.scheduler.Stop()
	}
}
