package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "covid_severity"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Dataset acquisition.
	FetchRequests  *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration  prometheus.Histogram
	DownloadBytes  prometheus.Counter
	CacheLookups   *prometheus.CounterVec // labels: result={hit,miss}
	CacheEvictions prometheus.Counter
	RowsParsed     prometheus.Counter
	RowsSkipped    prometheus.Counter

	// Pipeline runs.
	PipelineRuns      *prometheus.CounterVec // labels: outcome={success,error}
	PipelineDuration  prometheus.Histogram
	SnapshotTimestamp prometheus.Gauge
	WindowDays        prometheus.Gauge
	NonComputable     prometheus.Gauge
	ServiceRunning    prometheus.Gauge

	// Presentation and publishing.
	ChartRenders       *prometheus.CounterVec // labels: result={hit,miss,error}
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.DownloadBytes,
		m.CacheLookups,
		m.CacheEvictions,
		m.RowsParsed,
		m.RowsSkipped,
		m.PipelineRuns,
		m.PipelineDuration,
		m.SnapshotTimestamp,
		m.WindowDays,
		m.NonComputable,
		m.ServiceRunning,
		m.ChartRenders,
		m.SnapshotsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Dataset download attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single dataset download attempt.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes written to the snapshot cache.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_total",
			Help:      "Same-day snapshot file lookups by result.",
		}, []string{"result"}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_evictions_total",
			Help:      "Stale snapshot files removed from the cache directory.",
		}),
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "Valid dataset rows decoded.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Malformed dataset rows dropped during parsing.",
		}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline executions by outcome.",
		}, []string{"outcome"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete fetch-classify-aggregate-derive run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),
		SnapshotTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_timestamp_seconds",
			Help:      "Unix time of the last successful snapshot.",
		}),
		WindowDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_days",
			Help:      "Distinct dates covered by the current snapshot.",
		}),
		NonComputable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "non_computable_metrics",
			Help:      "Derived cells of the current snapshot with no usable population.",
		}),
		ServiceRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the refresh scheduler is active, 0 when shut down.",
		}),
		ChartRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_renders_total",
			Help:      "Chart image requests by cache result.",
		}, []string{"result"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Snapshots written to the Kafka topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed snapshot publications.",
		}),
	}
}
