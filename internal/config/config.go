package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	defaultDatasetURL = "https://data.drees.solidarites-sante.gouv.fr/api/records/1.0/download/?dataset=covid-19-resultats-par-age-issus-des-appariements-entre-si-vic-si-dep-et-vac-si"
	defaultInfoURL    = "https://data.drees.solidarites-sante.gouv.fr/explore/dataset/covid-19-resultats-par-age-issus-des-appariements-entre-si-vic-si-dep-et-vac-si/information/"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset acquisition.
	DatasetURL      string
	DatasetInfoURL  string
	CacheDir        string
	FetchTimeout    time.Duration
	FetchRetries    int
	RefreshInterval time.Duration

	ChartCacheSize int

	// Snapshot publishing (feature-flagged via KAFKA_ENABLED).
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}

	fetchRetries, err := strconv.Atoi(sharedcfg.EnvOrDefault("FETCH_RETRIES", "3"))
	if err != nil || fetchRetries < 0 || fetchRetries > 10 {
		return nil, errors.New("invalid FETCH_RETRIES: must be an integer between 0 and 10")
	}

	chartCacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("CHART_CACHE_SIZE", "64"))
	if err != nil || chartCacheSize <= 0 {
		return nil, errors.New("invalid CHART_CACHE_SIZE: must be a positive integer")
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatasetURL:      sharedcfg.EnvOrDefault("DATASET_URL", defaultDatasetURL),
		DatasetInfoURL:  sharedcfg.EnvOrDefault("DATASET_INFO_URL", defaultInfoURL),
		CacheDir:        sharedcfg.EnvOrDefault("CACHE_DIR", "data/cache"),
		FetchTimeout:    fetchTimeout,
		FetchRetries:    fetchRetries,
		RefreshInterval: refreshInterval,

		ChartCacheSize: chartCacheSize,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "covid-severity-snapshots"),
	}

	if cfg.DatasetURL == "" {
		return nil, errors.New("DATASET_URL is required")
	}
	if cfg.CacheDir == "" {
		return nil, errors.New("CACHE_DIR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}
