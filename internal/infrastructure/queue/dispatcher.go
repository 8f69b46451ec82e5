package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/playeconomy/identity/internal/core/domain"
	"github.com/playeconomy/identity/internal/core/service"
	"github.com/playeconomy/identity/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Deliverer runs one event to a terminal delivery state.
type Deliverer interface {
	Deliver(ctx context.Context, event domain.SyncEvent) service.DeliveryReport
}

// Dispatcher is the bounded background queue between the mutation path and the
// bus. Events are sharded by user id with consistent hashing, so events for one
// user are delivered in the order they were queued within this instance.
type Dispatcher struct {
	workers   []chan domain.SyncEvent
	deliverer Deliverer
	log       zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers, each
// buffering up to bufferSize events. Non-positive values use the defaults.
func NewDispatcher(numWorkers, bufferSize int, deliverer Deliverer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if bufferSize <= 0 {
		bufferSize = channelBuffer
	}
	d := &Dispatcher{
		workers:   make([]chan domain.SyncEvent, numWorkers),
		deliverer: deliverer,
		log:       log.With().Str("component", "dispatcher").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.SyncEvent, bufferSize)
	}
	return d
}

// Start launches all worker goroutines. Cancelling ctx abandons in-flight
// retries and drops whatever is still buffered.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Publish queues event on the worker responsible for its user. It never
// blocks: a full shard returns domain.ErrPublishQueueFull.
func (d *Dispatcher) Publish(ctx context.Context, event domain.SyncEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return domain.ErrPublisherClosed
	}

	idx := d.shardIndex(event.UserID)
	select {
	case d.workers[idx] <- event:
		metrics.SyncQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.SyncEventsTotal.WithLabelValues(string(service.StateAbandoned), "queue_full").Inc()
		return domain.ErrPublishQueueFull
	}
}

// Close stops accepting events and waits for the workers to exit. Workers
// drain their buffers unless the Start context has been cancelled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.SyncEvent) {
	defer d.wg.Done()
	workerID := strconv.Itoa(id)

	for {
		select {
		case <-ctx.Done():
			if dropped := len(ch); dropped > 0 {
				metrics.SyncEventsTotal.WithLabelValues(string(service.StateAbandoned), service.ReasonShutdown).Add(float64(dropped))
				d.log.Warn().Int("worker_id", id).Int("dropped", dropped).Msg("worker stopped with queued sync events")
			}
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.SyncQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))

			report := d.deliverer.Deliver(ctx, event)

			metrics.SyncEventsTotal.WithLabelValues(string(report.State), report.Reason).Inc()
			metrics.SyncPublishAttempts.Observe(float64(report.Attempts))
			metrics.SyncDeliveryDuration.WithLabelValues(string(report.State)).Observe(report.Elapsed.Seconds())
		}
	}
}
