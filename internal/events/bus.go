// Package events implements the Event Bus: a bounded FIFO of typed events
// shared across an agent instance and its streaming consumers.
package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentrunner/internal/metrics"
	"github.com/haasonsaas/agentrunner/pkg/models"
)

// DefaultCapacity is the Event Bus's default bounded FIFO size.
const DefaultCapacity = 1000

// DefaultPollInterval is how often Subscribe's streamer polls the bus when
// it finds no event to forward, mirroring the SSE streamer's cooperative
// yield.
const DefaultPollInterval = 10 * time.Millisecond

// Bus is a bounded FIFO of Events. Publish never blocks: once full, the
// oldest event is dropped and a warning is logged. A single producer's
// events are observed in publication order; across producers, ordering is
// only per-producer.
type Bus struct {
	mu       sync.Mutex
	capacity int
	buf      []models.Event
	head     int // index of oldest event
	size     int
	dropped  uint64
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewBus constructs a Bus with the given bounded capacity. A capacity <= 0
// uses DefaultCapacity. A nil logger uses slog.Default().
func NewBus(capacity int, logger *slog.Logger) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		capacity: capacity,
		buf:      make([]models.Event, capacity),
		logger:   logger,
	}
}

// SetMetrics attaches a Metrics recorder so every overflow drop also
// increments the process-wide dropped-event counter. A nil m (the
// default) disables instrumentation.
func (b *Bus) SetMetrics(m *metrics.Metrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = m
}

// NewEvent stamps an Event with a fresh id and timestamp. Callers supply
// type, data, and metadata.
func NewEvent(typ models.EventType, data, metadata map[string]any) models.Event {
	return models.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now(),
		Data:      data,
		Metadata:  metadata,
	}
}

// Publish appends e to the FIFO. If the bus is full, the oldest event is
// dropped and a warning is logged.
func (b *Bus) Publish(e models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == b.capacity {
		dropped := b.buf[b.head]
		b.head = (b.head + 1) % b.capacity
		b.size--
		atomic.AddUint64(&b.dropped, 1)
		b.logger.Warn("event bus full, dropping oldest event",
			slog.String("dropped_event_id", dropped.ID),
			slog.String("dropped_event_type", string(dropped.Type)),
		)
		b.metrics.ObserveEventDropped()
	}

	tail := (b.head + b.size) % b.capacity
	b.buf[tail] = e
	b.size++
}

// DrainOne pops and returns the oldest event, or (Event{}, false) if the
// bus is empty. Non-blocking.
func (b *Bus) DrainOne() (models.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		return models.Event{}, false
	}
	e := b.buf[b.head]
	b.buf[b.head] = models.Event{}
	b.head = (b.head + 1) % b.capacity
	b.size--
	return e, true
}

// Len reports the number of events currently queued.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// DroppedCount reports how many events have been dropped due to overflow.
func (b *Bus) DroppedCount() uint64 {
	return atomic.LoadUint64(&b.dropped)
}

// Subscribe returns a single-reader stream of events. An internal goroutine
// polls DrainOne, cooperatively yielding with pollInterval (DefaultPollInterval
// when <= 0) whenever the bus is empty, and closes the channel when ctx is
// done. Only one active subscriber is supported at a time; callers
// that need fan-out should wrap the returned channel themselves.
func (b *Bus) Subscribe(ctx context.Context, pollInterval time.Duration) <-chan models.Event {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	out := make(chan models.Event)
	go func() {
		defer close(out)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			if e, ok := b.DrainOne(); ok {
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
