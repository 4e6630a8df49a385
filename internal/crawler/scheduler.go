package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

const jobTag = "news-crawler"

// Runner is a unit of scheduled work.
type Runner interface {
	Run(ctx context.Context) (int, error)
}

// Scheduler runs a job at startup and then every interval. Overlapping runs are skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       Runner
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a scheduler. timeout bounds a single run.
func NewScheduler(job Runner, interval, timeout time.Duration, logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		job:       job,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the job and starts the scheduler in the background.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Tag(jobTag).Do(s.run); err != nil {
		return fmt.Errorf("schedule crawler: %w", err)
	}
	s.scheduler.StartAsync()
	s.logger.Info("crawler scheduled", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels an in-flight run and stops the scheduler.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

func (s *Scheduler) run() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.job.Run(ctx); err != nil {
		s.logger.Error("crawler run failed", zap.Error(err))
	}
}
