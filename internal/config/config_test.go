package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDatasetURL = "http://localhost:9999/export.csv"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, defaultDatasetURL, cfg.DatasetURL)
	assert.Equal(t, defaultInfoURL, cfg.DatasetInfoURL)
	assert.Equal(t, "data/cache", cfg.CacheDir)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.FetchRetries)
	assert.Equal(t, time.Hour, cfg.RefreshInterval)
	assert.Equal(t, 64, cfg.ChartCacheSize)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "covid-severity-snapshots", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATASET_URL", testDatasetURL)
	t.Setenv("CACHE_DIR", "/var/cache/covid")
	t.Setenv("FETCH_TIMEOUT", "15s")
	t.Setenv("FETCH_RETRIES", "0")
	t.Setenv("REFRESH_INTERVAL", "30m")
	t.Setenv("CHART_CACHE_SIZE", "8")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, testDatasetURL, cfg.DatasetURL)
	assert.Equal(t, "/var/cache/covid", cfg.CacheDir)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 0, cfg.FetchRetries)
	assert.Equal(t, 30*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 8, cfg.ChartCacheSize)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidFetchTimeout(t *testing.T) {
	for _, v := range []string{"bad", "0s", "-5s"} {
		t.Setenv("FETCH_TIMEOUT", v)
		_, err := Load()
		require.Error(t, err, v)
		assert.Contains(t, err.Error(), "FETCH_TIMEOUT")
	}
}

func TestLoad_InvalidRefreshInterval(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "daily")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFRESH_INTERVAL")
}

func TestLoad_InvalidFetchRetries(t *testing.T) {
	for _, v := range []string{"-1", "11", "three"} {
		t.Setenv("FETCH_RETRIES", v)
		_, err := Load()
		require.Error(t, err, v)
		assert.Contains(t, err.Error(), "FETCH_RETRIES")
	}
}

func TestLoad_InvalidChartCacheSize(t *testing.T) {
	t.Setenv("CHART_CACHE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHART_CACHE_SIZE")
}

func TestLoad_KafkaDisabledByDefault(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "yes")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled, "only the literal \"true\" enables publishing")
}
