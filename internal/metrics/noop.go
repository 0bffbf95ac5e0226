package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) ParseCompleted(outcome string)                               {}
func (n *NoopSink) SearchCompleted(duration time.Duration, runs int, err error) {}
func (n *NoopSink) PreviewRateLimited()                                         {}
func (n *NoopSink) AnalyticsWriteFailed()                                       {}
func (n *NoopSink) AnalyticsQueueDepth(depth int)                               {}
func (n *NoopSink) SchedulesStored(delta int)                                   {}
