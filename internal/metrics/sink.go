package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/djlord-it/cronpeek/internal/cron"
)

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
// If the metrics backend is unavailable, implementations log warnings and continue.
type Sink interface {
	// Parser metrics
	ParseCompleted(outcome string)

	// Search metrics
	SearchCompleted(duration time.Duration, runs int, err error)

	// API metrics
	PreviewRateLimited()

	// Storage metrics
	AnalyticsWriteFailed()
	AnalyticsQueueDepth(depth int)
	SchedulesStored(delta int)
}

// Outcome labels that are not cron error kinds.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeOther   = "other"
)

// ClassifyError maps a parse or search error to an outcome label.
// Cron errors are labelled with their kind.
func ClassifyError(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return OutcomeTimeout
	}
	if kind := cron.KindOf(err); kind != "" {
		return string(kind)
	}
	return OutcomeOther
}
