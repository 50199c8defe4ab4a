package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/covid-severity-etl/internal/config"
	"github.com/couchcryptid/covid-severity-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() domain.Snapshot {
	rows := domain.Derive([]domain.AggregatedRow{
		{
			Stratum:    domain.Stratum{Age: domain.Age20To39, Status: domain.Unvaccinated},
			Hospital:   30,
			ICU:        6,
			Deaths:     1,
			Population: 1000,
			Days:       15,
		},
		{
			Stratum: domain.Stratum{Age: domain.Age80AndUp, Status: domain.Vaccinated},
		},
	})
	return domain.Snapshot{
		Day:         domain.NewDay(2021, 3, 15),
		Dates:       []domain.Day{domain.NewDay(2021, 2, 28), domain.NewDay(2021, 3, 14)},
		Rows:        rows,
		GeneratedAt: time.Date(2021, 3, 15, 9, 0, 0, 0, time.UTC),
	}
}

func TestStratumKey(t *testing.T) {
	key := StratumKey(domain.Stratum{Age: domain.Age0To19, Status: domain.Vaccinated})
	assert.Equal(t, "0-19 ans|[1]. vacciné", key)
}

func TestSerializeRow(t *testing.T) {
	snap := testSnapshot()

	msg, err := serializeRow(snap, snap.Rows[0])
	require.NoError(t, err)

	assert.Equal(t, []byte("20-39 ans|[0]. Non vaccinés"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "snapshot_day", msg.Headers[0].Key)
	assert.Equal(t, []byte("2021-03-15"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2021-03-15T09:00:00Z"), msg.Headers[1].Value)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "2021-03-15", payload["day"])
	assert.Equal(t, "2021-02-28", payload["from"])
	assert.Equal(t, "2021-03-14", payload["to"])

	row := payload["row"].(map[string]any)
	assert.Equal(t, "20-39 ans", row["age"])
	assert.Equal(t, "[0]. Non vaccinés", row["status"])
	assert.EqualValues(t, 30, row["hc_pcr"])

	metrics := row["metrics"].(map[string]any)
	assert.InDelta(t, 30000.0, metrics["hopital_per_1M"], 1e-6)
	assert.InDelta(t, 300000.0, metrics["hopital_per_10M"], 1e-6)
}

func TestSerializeRow_NonComputableIsNull(t *testing.T) {
	snap := testSnapshot()

	msg, err := serializeRow(snap, snap.Rows[1])
	require.NoError(t, err)

	var decoded stratumMessage
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, domain.Age80AndUp, decoded.Row.Age)
	assert.False(t, decoded.Row.Metric("mort_per_1M").Computable)
	assert.True(t, decoded.Row.Metric("mort").Computable)
	assert.Contains(t, string(msg.Value), `"mort_per_1M":null`)
}

func TestNewPublisher_UsesConfig(t *testing.T) {
	p := NewPublisher(&config.Config{
		KafkaBrokers: []string{"broker1:9092", "broker2:9092"},
		KafkaTopic:   "covid-severity-snapshots",
	}, nil)
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, "covid-severity-snapshots", p.writer.Topic)
	assert.Equal(t, kafkago.TCP("broker1:9092", "broker2:9092"), p.writer.Addr)
	assert.IsType(t, &kafkago.Hash{}, p.writer.Balancer)
}

func TestPublish_EmptySnapshotIsNoop(t *testing.T) {
	p := NewPublisher(&config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaTopic: "t"}, nil)
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, p.Publish(t.Context(), domain.Snapshot{}))
}
