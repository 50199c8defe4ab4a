package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-severity-etl/internal/config"
	"github.com/couchcryptid/covid-severity-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces one message per stratum of each snapshot.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured snapshot topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// stratumMessage is the payload of a single published row.
type stratumMessage struct {
	Day         domain.Day        `json:"day"`
	From        domain.Day        `json:"from"`
	To          domain.Day        `json:"to"`
	Row         domain.DerivedRow `json:"row"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Publish writes every derived row of the snapshot in a single WriteMessages
// call. Rows are keyed by stratum so a compacted topic keeps the latest value.
func (p *Publisher) Publish(ctx context.Context, snap domain.Snapshot) error {
	if len(snap.Rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Rows))
	for i := range snap.Rows {
		msg, err := serializeRow(snap, snap.Rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", snap.Day, err)
	}
	p.logger.Info("snapshot published", "topic", p.writer.Topic, "day", snap.Day.String(), "messages", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// StratumKey identifies a stratum on the topic, e.g. "20-39 ans|[0]. Non vaccinés".
func StratumKey(s domain.Stratum) string {
	return string(s.Age) + "|" + string(s.Status)
}

// serializeRow marshals one derived row into a Kafka message.
func serializeRow(snap domain.Snapshot, row domain.DerivedRow) (kafkago.Message, error) {
	data, err := json.Marshal(stratumMessage{
		Day:         snap.Day,
		From:        snap.Earliest(),
		To:          snap.Latest(),
		Row:         row,
		GeneratedAt: snap.GeneratedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize stratum row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(StratumKey(row.Stratum)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "snapshot_day", Value: []byte(snap.Day.String())},
			{Key: "generated_at", Value: []byte(snap.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
