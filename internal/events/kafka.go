package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	// PublishTimeout bounds one Publish call, topic metadata lookup
	// included. Defaults to 2s.
	PublishTimeout time.Duration
}

// KafkaPublisher writes events as JSON, keyed by chatbot id so every event of
// one chatbot lands on the same partition.
//
// The writer is async: Publish returns once the message is queued, and
// delivery failures are logged from the completion callback. Publish runs
// while a wizard session is locked, so it never waits on the brokers for
// longer than PublishTimeout.
type KafkaPublisher struct {
	writer  *kafka.Writer
	topic   string
	timeout time.Duration
}

func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		WriteTimeout:           cfg.PublishTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				slog.Warn("Kafka delivery failed", "topic", cfg.Topic, "messages", len(messages), "error", err)
			}
		},
	}
	slog.Info("Kafka publisher configured", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return &KafkaPublisher{writer: writer, topic: cfg.Topic, timeout: cfg.PublishTimeout}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ChatbotID.String()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
