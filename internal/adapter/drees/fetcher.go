// Package drees retrieves and parses the DREES severe-case export, keeping a
// single same-day copy on disk.
package drees

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/covid-severity-etl/internal/domain"
	"github.com/couchcryptid/covid-severity-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultURL is the full-export endpoint of the dataset.
	DefaultURL = "https://data.drees.solidarites-sante.gouv.fr/api/records/1.0/download/?dataset=covid-19-resultats-par-age-issus-des-appariements-entre-si-vic-si-dep-et-vac-si"

	partialSuffix = ".part"
)

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	URL      string
	CacheDir string
	Timeout  time.Duration
	// Retries is the number of additional attempts after a failed download.
	Retries    int
	Backoff    time.Duration
	MaxBackoff time.Duration
	Clock      clockwork.Clock
	HTTPClient *http.Client
}

// Fetcher downloads the dataset at most once per calendar day and parses it.
type Fetcher struct {
	url        string
	cacheDir   string
	httpClient *http.Client
	retries    int
	backoff    time.Duration
	maxBackoff time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	f := &Fetcher{
		url:        opts.URL,
		cacheDir:   opts.CacheDir,
		httpClient: opts.HTTPClient,
		retries:    opts.Retries,
		backoff:    opts.Backoff,
		maxBackoff: opts.MaxBackoff,
		clock:      opts.Clock,
		logger:     logger,
		metrics:    metrics,
	}
	if f.url == "" {
		f.url = DefaultURL
	}
	if f.cacheDir == "" {
		f.cacheDir = "."
	}
	if f.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		f.httpClient = &http.Client{Timeout: timeout}
	}
	if f.retries < 0 {
		f.retries = 0
	}
	if f.backoff <= 0 {
		f.backoff = 500 * time.Millisecond
	}
	if f.maxBackoff <= 0 {
		f.maxBackoff = 10 * time.Second
	}
	if f.clock == nil {
		f.clock = clockwork.NewRealClock()
	}
	return f
}

// CacheFileName is the snapshot file name for a calendar day.
func CacheFileName(day domain.Day) string {
	return "data-" + day.Time().Format("02-01") + ".csv"
}

// Today returns the current calendar day according to the fetcher's clock.
func (f *Fetcher) Today() domain.Day {
	return domain.DayOf(f.clock.Now())
}

// FetchToday is FetchDay for the fetcher's current day.
func (f *Fetcher) FetchToday(ctx context.Context) (domain.Dataset, error) {
	return f.FetchDay(ctx, f.Today())
}

// FetchDay returns the windowed dataset cached under day. It evicts snapshots
// from other days, downloads day's copy if absent, parses it (skipping
// malformed rows) and keeps the most recent domain.WindowSize dates.
func (f *Fetcher) FetchDay(ctx context.Context, day domain.Day) (domain.Dataset, error) {
	name := CacheFileName(day)
	path := filepath.Join(f.cacheDir, name)

	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return domain.Dataset{}, fmt.Errorf("%w: create cache dir: %w", domain.ErrFetch, err)
	}
	if err := f.evictStale(name); err != nil {
		return domain.Dataset{}, fmt.Errorf("%w: evict stale snapshots: %w", domain.ErrFetch, err)
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		f.metrics.CacheLookups.WithLabelValues("hit").Inc()
		f.logger.Debug("reusing cached snapshot", "path", path)
	case errors.Is(err, fs.ErrNotExist):
		f.metrics.CacheLookups.WithLabelValues("miss").Inc()
		if err := f.downloadWithRetry(ctx, path); err != nil {
			return domain.Dataset{}, fmt.Errorf("%w: %w", domain.ErrFetch, err)
		}
	default:
		return domain.Dataset{}, fmt.Errorf("%w: stat %s: %w", domain.ErrFetch, path, err)
	}

	// An unusable snapshot is discarded so the next refresh downloads again.
	res, err := f.parseFile(path)
	if err != nil {
		f.discard(path)
		return domain.Dataset{}, err
	}
	if len(res.Records) == 0 {
		f.discard(path)
		return domain.Dataset{}, fmt.Errorf("%w: %s (%d rows skipped)", domain.ErrEmptyDataset, path, res.Skipped)
	}

	records, dates := domain.Window(res.Records, domain.WindowSize)
	f.logger.Info("dataset loaded",
		"path", path,
		"rows", len(res.Records),
		"skipped", res.Skipped,
		"window_rows", len(records),
		"earliest", dates[0].String(),
		"latest", dates[len(dates)-1].String(),
	)
	return domain.Dataset{Records: records, Dates: dates, Skipped: res.Skipped}, nil
}

func (f *Fetcher) parseFile(path string) (ParseResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w: open %s: %w", domain.ErrFetch, path, err)
	}
	defer file.Close()

	res, err := Parse(file)
	if err != nil {
		return ParseResult{}, fmt.Errorf("parse %s: %w", path, err)
	}

	f.metrics.RowsParsed.Add(float64(len(res.Records)))
	if res.Skipped > 0 {
		f.metrics.RowsSkipped.Add(float64(res.Skipped))
		f.logger.Warn("skipped malformed rows", "path", path, "skipped", res.Skipped)
	}
	return res, nil
}

func (f *Fetcher) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("failed to discard unusable snapshot", "path", path, "error", err)
	}
}

// evictStale removes every snapshot (and partial download) except keep.
func (f *Fetcher) evictStale(keep string) error {
	entries, err := os.ReadDir(f.cacheDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == keep {
			continue
		}
		if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, partialSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(f.cacheDir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		f.metrics.CacheEvictions.Inc()
		f.logger.Info("evicted stale snapshot", "file", name)
	}
	return nil
}

// downloadWithRetry retries transient failures with exponential backoff.
func (f *Fetcher) downloadWithRetry(ctx context.Context, path string) error {
	backoff := f.backoff
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			f.logger.Warn("dataset download failed, retrying",
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			if !retry.SleepWithContext(ctx, backoff) {
				return ctx.Err()
			}
			backoff = retry.NextBackoff(backoff, f.maxBackoff)
		}

		start := time.Now()
		lastErr = f.download(ctx, path)
		f.metrics.FetchDuration.Observe(time.Since(start).Seconds())
		if lastErr == nil {
			f.metrics.FetchRequests.WithLabelValues("success").Inc()
			return nil
		}
		f.metrics.FetchRequests.WithLabelValues("error").Inc()
		if !retryable(lastErr) || ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

// download streams the dataset into path via a temporary file so that a
// failed transfer never leaves a truncated snapshot behind.
func (f *Fetcher) download(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dataset request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	tmp := path + partialSuffix
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	f.metrics.DownloadBytes.Add(float64(n))
	f.logger.Info("dataset downloaded", "url", f.url, "path", path, "bytes", n)
	return nil
}

// StatusError is returned when the endpoint answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("dataset endpoint returned status %d", e.Code)
	}
	return fmt.Sprintf("dataset endpoint returned status %d: %s", e.Code, e.Body)
}

// retryable reports whether a download error is worth another attempt:
// transport errors, 429 and 5xx responses.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return !errors.Is(err, context.Canceled)
}
