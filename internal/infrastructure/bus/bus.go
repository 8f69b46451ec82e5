// Package bus holds the message bus transports sync events are published to.
package bus

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playeconomy/identity/internal/core/ports"
)

const (
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// Options selects and configures a transport.
type Options struct {
	Driver         string
	Topic          string
	KafkaBrokers   []string
	StreamMaxLen   int64
	AttemptTimeout time.Duration
}

// New returns the transport named by opts.Driver. The redis driver reuses rdb.
func New(opts Options, rdb *redis.Client) (ports.EventBus, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("bus: redis driver requires a redis client")
		}
		return NewRedisStreamBus(rdb, opts.Topic, opts.StreamMaxLen), nil
	case DriverKafka:
		if len(opts.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("bus: kafka driver requires at least one broker")
		}
		return NewKafkaBus(KafkaConfig{
			Brokers:      opts.KafkaBrokers,
			Topic:        opts.Topic,
			WriteTimeout: opts.AttemptTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("bus: unknown driver %q", opts.Driver)
	}
}
