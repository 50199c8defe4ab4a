package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-severity-etl/internal/domain"
	"github.com/couchcryptid/covid-severity-etl/internal/observability"
	"github.com/go-co-op/gocron"
)

// Runner produces a snapshot on demand.
type Runner interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// Scheduler keeps the snapshot warm by calling the runner at a fixed interval.
// The first run fires as soon as the scheduler starts.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	timeout  time.Duration
	cron     *gocron.Scheduler
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewScheduler creates a Scheduler. timeout bounds each run.
func NewScheduler(r Runner, interval, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{
		runner:   r,
		interval: interval,
		timeout:  timeout,
		cron:     cron,
		logger:   logger,
		metrics:  metrics,
	}
}

// Start registers the refresh job and starts the scheduler in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.Every(s.interval).Do(s.tick); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	s.cron.StartAsync()
	s.metrics.ServiceRunning.Set(1)
	s.logger.Info("refresh scheduler started", "interval", s.interval)
	return nil
}

// Stop halts the scheduler. A run in flight is left to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.metrics.ServiceRunning.Set(0)
	s.logger.Info("refresh scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// Errors are already logged and counted by the pipeline.
	if _, err := s.runner.Snapshot(ctx); err != nil {
		s.logger.Debug("scheduled refresh did not produce a snapshot", "error", err)
	}
}
