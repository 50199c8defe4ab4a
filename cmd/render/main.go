// Command render runs the pipeline once and writes the nine dashboard charts
// plus the derived snapshot as JSON, without starting a server.
//
// Usage:
//
//	go run ./cmd/render \
//	  -cache-dir data/cache \
//	  -out out/charts
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/covid-severity-etl/internal/adapter/drees"
	"github.com/couchcryptid/covid-severity-etl/internal/chart"
	"github.com/couchcryptid/covid-severity-etl/internal/dashboard"
	"github.com/couchcryptid/covid-severity-etl/internal/observability"
	"github.com/couchcryptid/covid-severity-etl/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cacheDir := flag.String("cache-dir", "data/cache", "directory holding the daily dataset snapshot")
	url := flag.String("url", drees.DefaultURL, "dataset download URL")
	outDir := flag.String("out", "", "output directory for PNG charts and snapshot.json")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline for the run")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	metrics := observability.NewMetricsForTesting()

	fetcher := drees.NewFetcher(drees.Options{URL: *url, CacheDir: *cacheDir, Retries: 3}, logger, metrics)
	p := pipeline.New(fetcher, nil, logger, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	snap, err := p.Snapshot(ctx)
	if err != nil {
		return err
	}

	renderer, err := chart.NewRenderer()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, sec := range dashboard.Sections(snap.Earliest(), snap.Latest()) {
		for _, panel := range sec.Panels {
			png, err := dashboard.RenderPanel(renderer, snap, panel)
			if err != nil {
				return err
			}
			path := filepath.Join(*outDir, panel.Metric+".png")
			if err := os.WriteFile(path, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			log.Printf("%s: %s", panel.Metric, panel.Title)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	path := filepath.Join(*outDir, "snapshot.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	log.Printf("window %s to %s, %d strata, %d rows skipped", snap.Earliest(), snap.Latest(), len(snap.Rows), snap.Skipped)
	return nil
}
