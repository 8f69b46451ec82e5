package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/playeconomy/identity/internal/core/domain"
)

const defaultStreamMaxLen = 100_000

// streamClient is the subset of *redis.Client the stream transport needs.
// Tests swap in a stub.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStreamBus publishes sync events to a Redis stream named after the topic.
// Consumers read with consumer groups and dedupe on messageId.
type RedisStreamBus struct {
	client streamClient
	stream string
	maxLen int64
}

// NewRedisStreamBus wraps an existing client. The client's lifecycle stays
// with the caller, so Close is a no-op.
func NewRedisStreamBus(client *redis.Client, stream string, maxLen int64) *RedisStreamBus {
	return newRedisStreamBus(client, stream, maxLen)
}

func newRedisStreamBus(client streamClient, stream string, maxLen int64) *RedisStreamBus {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &RedisStreamBus{client: client, stream: stream, maxLen: maxLen}
}

// Publish appends the event. The entry id assigned by Redis is the ack.
func (b *RedisStreamBus) Publish(ctx context.Context, event domain.SyncEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode sync event: %v: %w", err, domain.ErrPermanentPublish)
	}

	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]any{
			"messageId": event.MessageID,
			"userId":    event.UserID,
			"kind":      string(event.Kind),
			"payload":   payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd %s: %w", b.stream, err)
	}
	return nil
}

func (b *RedisStreamBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisStreamBus) Close() error {
	return nil
}
