package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/playeconomy/identity/internal/core/domain"
)

// scriptedBus returns the scripted errors in order, then succeeds.
type scriptedBus struct {
	mu        sync.Mutex
	script    []error
	always    error
	calls     int
	callTimes []time.Time
	delivered []domain.SyncEvent
	block     bool
}

func (b *scriptedBus) Publish(ctx context.Context, e domain.SyncEvent) error {
	b.mu.Lock()
	b.calls++
	b.callTimes = append(b.callTimes, time.Now())
	var err error
	switch {
	case b.always != nil:
		err = b.always
	case len(b.script) > 0:
		err = b.script[0]
		b.script = b.script[1:]
	}
	block := b.block
	b.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.delivered = append(b.delivered, e)
	b.mu.Unlock()
	return nil
}

func (b *scriptedBus) Ping(context.Context) error { return nil }
func (b *scriptedBus) Close() error              { return nil }

func (b *scriptedBus) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

var errBrokerDown = errors.New("dial tcp: connection refused")

func fastPolicy(maxRetries int) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRetries = maxRetries
	p.Interval = 5 * time.Millisecond
	p.AttemptTimeout = 50 * time.Millisecond
	return p
}

func testEvent() domain.SyncEvent {
	return domain.NewUserUpdated(&domain.User{ID: "U1", Email: "a@x.com", Gil: 100})
}

func TestSyncPublisher_DeliversFirstAttempt(t *testing.T) {
	bus := &scriptedBus{}
	p := NewSyncPublisher(bus, fastPolicy(3), zerolog.Nop())

	report := p.Deliver(context.Background(), testEvent())

	if report.State != StateDelivered || report.Attempts != 1 || report.Err != nil {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(bus.delivered) != 1 {
		t.Fatalf("expected one delivery, got %d", len(bus.delivered))
	}
}

func TestSyncPublisher_TransientThenDelivered(t *testing.T) {
	bus := &scriptedBus{script: []error{errBrokerDown, errBrokerDown}}
	p := NewSyncPublisher(bus, fastPolicy(3), zerolog.Nop())

	report := p.Deliver(context.Background(), testEvent())

	if report.State != StateDelivered || report.Attempts != 3 {
		t.Fatalf("expected delivery on third attempt, got %+v", report)
	}
}

func TestSyncPublisher_TransientExhaustsFixedRetries(t *testing.T) {
	bus := &scriptedBus{always: errBrokerDown}
	policy := fastPolicy(3)
	policy.Interval = 20 * time.Millisecond
	p := NewSyncPublisher(bus, policy, zerolog.Nop())

	report := p.Deliver(context.Background(), testEvent())

	if report.State != StateAbandoned || report.Reason != ReasonExhausted {
		t.Fatalf("expected abandoned after exhaustion, got %+v", report)
	}
	if report.Attempts != 4 || bus.callCount() != 4 {
		t.Fatalf("expected 1 attempt + 3 retries, got attempts=%d calls=%d", report.Attempts, bus.callCount())
	}
	if !errors.Is(report.Err, errBrokerDown) {
		t.Fatalf("expected last transient error, got %v", report.Err)
	}

	// Fixed interval: every gap is at least the configured delay and none has
	// grown exponentially.
	for i := 1; i < len(bus.callTimes); i++ {
		gap := bus.callTimes[i].Sub(bus.callTimes[i-1])
		if gap < policy.Interval {
			t.Fatalf("gap %d shorter than interval: %v", i, gap)
		}
		if gap > 4*policy.Interval+100*time.Millisecond {
			t.Fatalf("gap %d looks exponential: %v", i, gap)
		}
	}
}

func TestSyncPublisher_NonRetryableNeverRetried(t *testing.T) {
	cases := []error{
		domain.ErrUnknownUser,
		domain.ErrInsufficientFunds,
		fmt.Errorf("trading consumer: %w", domain.ErrInsufficientFunds),
		fmt.Errorf("kafka: %w", domain.ErrPermanentPublish),
	}
	for _, tc := range cases {
		t.Run(tc.Error(), func(t *testing.T) {
			bus := &scriptedBus{always: tc}
			p := NewSyncPublisher(bus, fastPolicy(3), zerolog.Nop())

			report := p.Deliver(context.Background(), testEvent())

			if report.State != StateAbandoned || report.Reason != ReasonNonRetryable {
				t.Fatalf("expected non-retryable abandon, got %+v", report)
			}
			if bus.callCount() != 1 {
				t.Fatalf("expected a single attempt, got %d", bus.callCount())
			}
			if !errors.Is(report.Err, tc) {
				t.Fatalf("expected %v, got %v", tc, report.Err)
			}
		})
	}
}

func TestSyncPublisher_NonRetryableAfterTransient(t *testing.T) {
	bus := &scriptedBus{script: []error{errBrokerDown, domain.ErrUnknownUser}}
	p := NewSyncPublisher(bus, fastPolicy(3), zerolog.Nop())

	report := p.Deliver(context.Background(), testEvent())

	if report.Reason != ReasonNonRetryable || report.Attempts != 2 {
		t.Fatalf("expected stop at second attempt, got %+v", report)
	}
}

func TestSyncPublisher_AttemptTimeoutIsTransient(t *testing.T) {
	bus := &scriptedBus{block: true}
	policy := fastPolicy(1)
	policy.AttemptTimeout = 10 * time.Millisecond
	p := NewSyncPublisher(bus, policy, zerolog.Nop())

	report := p.Deliver(context.Background(), testEvent())

	if report.State != StateAbandoned || report.Reason != ReasonExhausted {
		t.Fatalf("expected timeouts to exhaust retries, got %+v", report)
	}
	if bus.callCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", bus.callCount())
	}
	if !errors.Is(report.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", report.Err)
	}
}

func TestSyncPublisher_ShutdownAbandonsRetrying(t *testing.T) {
	bus := &scriptedBus{always: errBrokerDown}
	policy := fastPolicy(3)
	policy.Interval = time.Hour
	p := NewSyncPublisher(bus, policy, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan DeliveryReport, 1)
	go func() { done <- p.Deliver(ctx, testEvent()) }()

	deadline := time.After(2 * time.Second)
	for bus.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatalf("first attempt never happened")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()

	select {
	case report := <-done:
		if report.State != StateAbandoned || report.Reason != ReasonShutdown {
			t.Fatalf("expected shutdown abandon, got %+v", report)
		}
		if report.Attempts != 1 {
			t.Fatalf("expected the retry wait to be interrupted after 1 attempt, got %d", report.Attempts)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Deliver did not return after cancellation")
	}
}

func TestSyncPublisher_ZeroRetries(t *testing.T) {
	bus := &scriptedBus{always: errBrokerDown}
	p := NewSyncPublisher(bus, fastPolicy(0), zerolog.Nop())

	report := p.Deliver(context.Background(), testEvent())
	if report.Attempts != 1 || report.Reason != ReasonExhausted {
		t.Fatalf("expected single attempt, got %+v", report)
	}
}

func TestNewSyncPublisher_FillsDefaults(t *testing.T) {
	p := NewSyncPublisher(&scriptedBus{}, RetryPolicy{MaxRetries: 2}, zerolog.Nop())
	got := p.Policy()
	def := DefaultRetryPolicy()
	if got.Interval != def.Interval || got.AttemptTimeout != def.AttemptTimeout || len(got.NonRetryable) != len(def.NonRetryable) {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if got.MaxRetries != 2 {
		t.Fatalf("explicit MaxRetries overwritten: %d", got.MaxRetries)
	}
}
