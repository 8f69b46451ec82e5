package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"github.com/playeconomy/identity/internal/core/domain"
)

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig captures the producer settings.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaBus publishes sync events keyed by user id, so one user's events land
// on one partition in publish order.
type KafkaBus struct {
	writer  messageWriter
	topic   string
	brokers []string
}

// NewKafkaBus builds a synchronous, acks=all producer. kafka-go's own retries
// are disabled: the sync publisher owns the retry policy.
func NewKafkaBus(cfg KafkaConfig) *KafkaBus {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		MaxAttempts:            1,
		BatchSize:              1,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return &KafkaBus{writer: w, topic: cfg.Topic, brokers: cfg.Brokers}
}

func (b *KafkaBus) Publish(ctx context.Context, event domain.SyncEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode sync event: %v: %w", err, domain.ErrPermanentPublish)
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "messageId", Value: []byte(event.MessageID)},
			{Key: "kind", Value: []byte(event.Kind)},
		},
	}

	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return classifyKafkaError(b.topic, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (b *KafkaBus) Ping(ctx context.Context) error {
	var lastErr error
	for _, addr := range b.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		lastErr = errors.New("no kafka brokers configured")
	}
	return fmt.Errorf("kafka ping: %w", lastErr)
}

func (b *KafkaBus) Close() error {
	return b.writer.Close()
}

// classifyKafkaError marks broker rejections that no retry can fix as
// domain.ErrPermanentPublish. Network errors and retriable broker codes stay
// transient.
func classifyKafkaError(topic string, err error) error {
	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) {
		for _, e := range writeErrs {
			if e != nil {
				err = e
				break
			}
		}
	}

	var kerr kafka.Error
	if errors.As(err, &kerr) {
		switch kerr {
		case kafka.MessageSizeTooLarge,
			kafka.InvalidMessage,
			kafka.InvalidMessageSize,
			kafka.TopicAuthorizationFailed,
			kafka.InvalidTopic:
			return fmt.Errorf("kafka write %s: %v: %w", topic, err, domain.ErrPermanentPublish)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("kafka write %s: broker unreachable: %w", topic, err)
	}
	return fmt.Errorf("kafka write %s: %w", topic, err)
}
