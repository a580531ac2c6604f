package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"votecore/contexts/elections/tally-service/ports"

	"github.com/segmentio/kafka-go"
)

// Kafka publishes envelopes to broker topics named after the event type and
// consumes them through consumer groups. Messages are keyed by the envelope
// partition key so one election's events stay ordered.
type Kafka struct {
	brokers []string
	writer  *kafka.Writer
	logger  *slog.Logger

	mu      sync.Mutex
	readers []*kafka.Reader
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{
		brokers: append([]string(nil), brokers...),
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", event.EventID, err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(event.PartitionKey),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
		Time: event.OccurredAt,
	})
	if err != nil {
		k.logger.Error("kafka publish failed",
			"event", "kafka_publish_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	k.logger.Info("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return nil
}

// Subscribe starts one group reader for topic. Offsets are committed only
// after the handler succeeds; failed messages are logged and redelivered to
// the group after a restart.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        k.brokers,
		Topic:          topic,
		GroupID:        consumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
	})
	k.mu.Lock()
	k.readers = append(k.readers, reader)
	k.mu.Unlock()

	go func() {
		for {
			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
					k.logger.Error("kafka fetch failed",
						"event", "kafka_fetch_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"error", err.Error(),
					)
				}
				return
			}

			var event ports.EventEnvelope
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				k.logger.Error("kafka message decode failed",
					"event", "kafka_decode_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"offset", msg.Offset,
					"error", err.Error(),
				)
				_ = reader.CommitMessages(ctx, msg)
				continue
			}

			if err := handler(ctx, event); err != nil {
				k.logger.Error("consumer handler failed",
					"event", "kafka_consume_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"consumer_group", consumerGroup,
					"event_id", event.EventID,
					"event_type", event.EventType,
					"error", err.Error(),
				)
				continue
			}
			if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				k.logger.Warn("kafka commit failed",
					"event", "kafka_commit_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"offset", msg.Offset,
					"error", err.Error(),
				)
			}
		}
	}()
	return nil
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	readers := k.readers
	k.readers = nil
	k.mu.Unlock()

	errs := []error{k.writer.Close()}
	for _, reader := range readers {
		errs = append(errs, reader.Close())
	}
	return errors.Join(errs...)
}
