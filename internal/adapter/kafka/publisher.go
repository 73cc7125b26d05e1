package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/climate-dashboard/internal/config"
	"github.com/couchcryptid/climate-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// batchTimeout flushes each event promptly; fetches produce one message at a time.
const batchTimeout = 10 * time.Millisecond

// Publisher produces fetch activity events to a Kafka topic.
// It implements dashboard.EventPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured events topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one message per completed fetch.
func (p *Publisher) Publish(ctx context.Context, event domain.FetchCompleted) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write fetch event: %w", err)
	}
	p.logger.Debug("fetch event published", "topic", p.writer.Topic, "key", string(msg.Key))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a FetchCompleted event into a Kafka message keyed
// by region and parameter so one series stays on one partition.
func serializeToMessage(event domain.FetchCompleted) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize fetch event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Filters.Region + "|" + string(event.Filters.Parameter)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "parameter", Value: []byte(event.Filters.Parameter)},
			{Key: "fetched_at", Value: []byte(event.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
