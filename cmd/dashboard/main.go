// Command dashboard serves the COVID-19 severity dashboard: it fetches the
// DREES dataset once a day, derives the per-stratum metrics, and renders
// them as bar charts over HTTP.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/covid-severity-etl/internal/adapter/drees"
	httpadapter "github.com/couchcryptid/covid-severity-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/covid-severity-etl/internal/adapter/kafka"
	"github.com/couchcryptid/covid-severity-etl/internal/chart"
	"github.com/couchcryptid/covid-severity-etl/internal/config"
	"github.com/couchcryptid/covid-severity-etl/internal/observability"
	"github.com/couchcryptid/covid-severity-etl/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A local .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	fetcher := drees.NewFetcher(drees.Options{
		URL:      cfg.DatasetURL,
		CacheDir: cfg.CacheDir,
		Timeout:  cfg.FetchTimeout,
		Retries:  cfg.FetchRetries,
	}, logger, metrics)

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(fetcher, publisher, logger, metrics)

	renderer, err := chart.NewRenderer()
	if err != nil {
		logger.Error("failed to load chart fonts", "error", err)
		os.Exit(1)
	}
	charts := chart.NewCachedRenderer(renderer, cfg.ChartCacheSize, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, charts, cfg.DatasetInfoURL, logger)
	// A scheduled run may spend the full fetch timeout on every attempt.
	runTimeout := cfg.FetchTimeout*time.Duration(cfg.FetchRetries+1) + time.Minute
	scheduler := pipeline.NewScheduler(p, cfg.RefreshInterval, runTimeout, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Warm and periodically refresh the snapshot.
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	scheduler.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	if snap, ok := p.Current(); ok {
		logger.Info("shutdown complete", "last_snapshot", snap.Day.String(), "window_start", snap.Earliest().String(), "window_end", snap.Latest().String())
	} else {
		logger.Info("shutdown complete", "last_snapshot", "none")
	}
}
