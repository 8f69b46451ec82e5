package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/playeconomy/identity/internal/core/domain"
	"github.com/playeconomy/identity/internal/core/ports"
)

// DeliveryState is the lifecycle of one sync event inside the publisher.
//
//	pending → retrying(n) → delivered
//	pending → retrying(n) → abandoned
type DeliveryState string

const (
	StatePending   DeliveryState = "pending"
	StateRetrying  DeliveryState = "retrying"
	StateDelivered DeliveryState = "delivered"
	StateAbandoned DeliveryState = "abandoned"
)

// Reasons an event ends up abandoned.
const (
	ReasonNone         = ""
	ReasonNonRetryable = "non_retryable"
	ReasonExhausted    = "retries_exhausted"
	ReasonShutdown     = "shutdown"
)

// RetryPolicy is a fixed-interval retry budget. MaxRetries counts retries
// after the first attempt, so an event is tried at most MaxRetries+1 times.
type RetryPolicy struct {
	MaxRetries     int
	Interval       time.Duration
	AttemptTimeout time.Duration
	// NonRetryable errors abandon the event immediately without consuming a
	// retry slot. Matched with errors.Is.
	NonRetryable []error
}

// DefaultRetryPolicy retries three times, five seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		Interval:       5 * time.Second,
		AttemptTimeout: 10 * time.Second,
		NonRetryable: []error{
			domain.ErrUnknownUser,
			domain.ErrInsufficientFunds,
			domain.ErrPermanentPublish,
		},
	}
}

// DeliveryReport is the terminal state of a single Deliver call.
type DeliveryReport struct {
	State    DeliveryState
	Reason   string
	Attempts int
	Err      error
	Elapsed  time.Duration
}

// SyncPublisher drives one sync event through the retry state machine against
// the bus. It does not queue; see queue.Dispatcher for the background hand-off.
type SyncPublisher struct {
	bus    ports.EventBus
	policy RetryPolicy
	log    zerolog.Logger
}

// NewSyncPublisher returns a publisher bound to bus. Zero-valued policy fields
// fall back to DefaultRetryPolicy.
func NewSyncPublisher(bus ports.EventBus, policy RetryPolicy, log zerolog.Logger) *SyncPublisher {
	def := DefaultRetryPolicy()
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.Interval <= 0 {
		policy.Interval = def.Interval
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = def.AttemptTimeout
	}
	if policy.NonRetryable == nil {
		policy.NonRetryable = def.NonRetryable
	}
	return &SyncPublisher{
		bus:    bus,
		policy: policy,
		log:    log.With().Str("component", "sync_publisher").Logger(),
	}
}

// Policy returns the effective retry policy.
func (p *SyncPublisher) Policy() RetryPolicy {
	return p.policy
}

// Deliver attempts delivery immediately, retrying transient failures at a
// fixed interval. Cancelling ctx abandons the event.
func (p *SyncPublisher) Deliver(ctx context.Context, event domain.SyncEvent) DeliveryReport {
	started := time.Now()
	attempts := 0
	nonRetryable := false

	log := p.log.With().
		Str("user_id", event.UserID).
		Str("message_id", event.MessageID).
		Logger()

	operation := func() (struct{}, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, p.policy.AttemptTimeout)
		defer cancel()

		err := p.bus.Publish(attemptCtx, event)
		if err == nil {
			return struct{}{}, nil
		}
		if p.isNonRetryable(err) {
			nonRetryable = true
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	notify := func(err error, next time.Duration) {
		log.Warn().
			Err(err).
			Str("state", string(StateRetrying)).
			Int("attempt", attempts).
			Dur("next_in", next).
			Msg("sync event delivery failed, retrying")
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.policy.Interval)),
		backoff.WithMaxTries(uint(p.policy.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)

	report := DeliveryReport{
		State:    StateDelivered,
		Attempts: attempts,
		Elapsed:  time.Since(started),
	}
	if err == nil {
		log.Debug().Int("attempts", attempts).Msg("sync event delivered")
		return report
	}

	report.State = StateAbandoned
	report.Err = err
	switch {
	case nonRetryable:
		report.Reason = ReasonNonRetryable
	case ctx.Err() != nil:
		report.Reason = ReasonShutdown
	default:
		report.Reason = ReasonExhausted
	}

	log.Error().
		Err(err).
		Str("state", string(StateAbandoned)).
		Str("reason", report.Reason).
		Int("attempts", attempts).
		Int64("balance", event.Balance).
		Msg("sync event abandoned")

	return report
}

func (p *SyncPublisher) isNonRetryable(err error) bool {
	for _, target := range p.policy.NonRetryable {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
