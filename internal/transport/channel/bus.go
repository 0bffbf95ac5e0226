// Package channel queues preview events in memory so analytics writes stay
// off the request path.
package channel

import (
	"context"
	"errors"
	"time"

	"github.com/djlord-it/cronpeek/internal/domain"
)

// DefaultEmitTimeout bounds how long Emit waits for buffer space.
const DefaultEmitTimeout = 10 * time.Millisecond

// ErrBufferFull is returned when the buffer stays full for the emit timeout.
var ErrBufferFull = errors.New("event buffer full")

// MetricsSink receives buffer depth after every emit.
type MetricsSink interface {
	AnalyticsQueueDepth(depth int)
}

type EventBus struct {
	ch          chan domain.PreviewEvent
	emitTimeout time.Duration
	metrics     MetricsSink
}

type Option func(*EventBus)

func WithEmitTimeout(d time.Duration) Option {
	return func(b *EventBus) { b.emitTimeout = d }
}

func WithMetrics(sink MetricsSink) Option {
	return func(b *EventBus) { b.metrics = sink }
}

func NewEventBus(buffer int, opts ...Option) *EventBus {
	b := &EventBus{
		ch:          make(chan domain.PreviewEvent, buffer),
		emitTimeout: DefaultEmitTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Emit queues event, waiting at most the emit timeout for space.
func (b *EventBus) Emit(ctx context.Context, event domain.PreviewEvent) error {
	timer := time.NewTimer(b.emitTimeout)
	defer timer.Stop()

	select {
	case b.ch <- event:
		if b.metrics != nil {
			b.metrics.AnalyticsQueueDepth(len(b.ch))
		}
		return nil
	case <-timer.C:
		return ErrBufferFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record makes the bus usable wherever a synchronous analytics sink is.
func (b *EventBus) Record(ctx context.Context, event domain.PreviewEvent) error {
	return b.Emit(ctx, event)
}

func (b *EventBus) Channel() <-chan domain.PreviewEvent {
	return b.ch
}

func (b *EventBus) Len() int {
	return len(b.ch)
}
