package ports

import (
	"context"

	"github.com/playeconomy/identity/internal/core/domain"
)

// EventBus is a single delivery attempt to the message bus. A nil error is a
// confirmed hand-off; errors wrapping domain.ErrPermanentPublish are permanent,
// everything else is treated as transient.
type EventBus interface {
	Publish(ctx context.Context, event domain.SyncEvent) error
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher accepts sync events for background delivery. Publish returns
// once the event is queued; it does not wait for the bus.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.SyncEvent) error
}
