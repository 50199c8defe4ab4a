package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/covid-severity-etl/internal/domain"
	"github.com/couchcryptid/covid-severity-etl/internal/observability"
)

// Fetcher retrieves the windowed dataset for a calendar day. Today is read
// once per run and the same day is passed to FetchDay.
type Fetcher interface {
	Today() domain.Day
	FetchDay(ctx context.Context, day domain.Day) (domain.Dataset, error)
}

// Publisher receives every freshly built snapshot.
type Publisher interface {
	Publish(ctx context.Context, snap domain.Snapshot) error
}

// Pipeline orchestrates fetch, classify, aggregate and derive, and memoizes
// the resulting snapshot for the rest of the calendar day.
type Pipeline struct {
	fetcher   Fetcher
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	// mu serializes runs so concurrent requests share one download.
	mu      sync.Mutex
	current *domain.Snapshot
	lastErr error
}

// New creates a Pipeline. publisher may be nil.
func New(f Fetcher, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:   f,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Snapshot returns today's snapshot, building it on the first call of the day.
func (p *Pipeline) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	today := p.fetcher.Today()
	if p.current != nil && p.current.Day == today {
		return *p.current, nil
	}
	return p.run(ctx, today)
}

// Refresh rebuilds the snapshot even if one exists for today. The fetcher
// still reuses today's file, so this only re-reads and re-derives.
func (p *Pipeline) Refresh(ctx context.Context) (domain.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.run(ctx, p.fetcher.Today())
}

// Current returns the last successful snapshot, whatever its day.
func (p *Pipeline) Current() (domain.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return domain.Snapshot{}, false
	}
	return *p.current, true
}

// CheckReadiness returns nil once a snapshot has been built, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		return nil
	}
	if p.lastErr != nil {
		return fmt.Errorf("no snapshot available: %w", p.lastErr)
	}
	return errors.New("no snapshot has been built yet")
}

// run must be called with mu held.
func (p *Pipeline) run(ctx context.Context, today domain.Day) (domain.Snapshot, error) {
	start := time.Now()

	snap, err := p.build(ctx, today)
	p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.PipelineRuns.WithLabelValues("error").Inc()
		p.lastErr = err
		p.logger.Error("pipeline run failed", "day", today.String(), "error", err)
		return domain.Snapshot{}, err
	}

	p.metrics.PipelineRuns.WithLabelValues("success").Inc()
	p.metrics.SnapshotTimestamp.Set(float64(snap.GeneratedAt.Unix()))
	p.metrics.WindowDays.Set(float64(len(snap.Dates)))
	p.current = &snap
	p.lastErr = nil

	p.logger.Info("snapshot built",
		"day", today.String(),
		"earliest", snap.Earliest().String(),
		"latest", snap.Latest().String(),
		"strata", len(snap.Rows),
		"duration", time.Since(start),
	)

	p.publish(ctx, snap)
	return snap, nil
}

func (p *Pipeline) build(ctx context.Context, today domain.Day) (domain.Snapshot, error) {
	ds, err := p.fetcher.FetchDay(ctx, today)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap, err := transform(today, ds)
	if err != nil {
		return domain.Snapshot{}, err
	}
	p.metrics.NonComputable.Set(float64(nonComputable(snap)))
	return snap, nil
}

// publish is best effort: a failed publication never invalidates the snapshot.
func (p *Pipeline) publish(ctx context.Context, snap domain.Snapshot) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, snap); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Warn("snapshot publish failed", "day", snap.Day.String(), "error", err)
		return
	}
	p.metrics.SnapshotsPublished.Inc()
}
