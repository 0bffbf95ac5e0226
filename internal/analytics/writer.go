package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/djlord-it/cronpeek/internal/circuitbreaker"
	"github.com/djlord-it/cronpeek/internal/domain"
)

// DefaultDrainTimeout is the maximum time spent flushing buffered events
// during shutdown.
const DefaultDrainTimeout = 5 * time.Second

// Recorder persists one preview event. RedisSink implements it.
type Recorder interface {
	Record(ctx context.Context, event domain.PreviewEvent) error
}

// WriterMetrics is the subset of metrics the writer reports.
type WriterMetrics interface {
	AnalyticsWriteFailed()
	AnalyticsQueueDepth(depth int)
}

// Writer moves queued preview events into a Recorder.
type Writer struct {
	recorder     Recorder
	metrics      WriterMetrics
	drainTimeout time.Duration
}

func NewWriter(recorder Recorder) *Writer {
	return &Writer{
		recorder:     recorder,
		drainTimeout: DefaultDrainTimeout,
	}
}

func (w *Writer) WithMetrics(sink WriterMetrics) *Writer {
	w.metrics = sink
	return w
}

func (w *Writer) WithDrainTimeout(d time.Duration) *Writer {
	w.drainTimeout = d
	return w
}

// Run writes events from ch until ctx is cancelled, then drains whatever is
// still buffered.
func (w *Writer) Run(ctx context.Context, ch <-chan domain.PreviewEvent) {
	for {
		select {
		case <-ctx.Done():
			w.drain(ch)
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			w.write(ctx, event, len(ch))
		}
	}
}

// drain uses a fresh context since the run context is already cancelled.
func (w *Writer) drain(ch <-chan domain.PreviewEvent) {
	drainCtx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()

	logger := log.With().Str("component", "analytics").Logger()
	count := 0
	for {
		select {
		case <-drainCtx.Done():
			logger.Warn().Int("written", count).Int("dropped", len(ch)).Msg("drain timeout")
			return
		case event, ok := <-ch:
			if !ok {
				logger.Info().Int("written", count).Msg("drain complete")
				return
			}
			w.write(drainCtx, event, len(ch))
			count++
		default:
			if count > 0 {
				logger.Info().Int("written", count).Msg("drain complete")
			}
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, event domain.PreviewEvent, depth int) {
	if w.metrics != nil {
		w.metrics.AnalyticsQueueDepth(depth)
	}
	err := w.recorder.Record(ctx, event)
	if err == nil {
		return
	}
	if w.metrics != nil {
		w.metrics.AnalyticsWriteFailed()
	}
	// An open breaker fails every write until the cooldown ends.
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		log.Debug().Str("component", "analytics").Err(err).Msg("write skipped")
		return
	}
	log.Warn().Str("component", "analytics").Err(err).Str("outcome", string(event.Outcome)).Msg("write failed")
}
