package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// PrometheusSink implements Sink using Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Parser metrics
	parsesTotal *prometheus.CounterVec

	// Search metrics
	searchesTotal  *prometheus.CounterVec
	searchDuration prometheus.Histogram
	runsReturned   prometheus.Histogram

	// API metrics
	rateLimitedTotal prometheus.Counter

	// Storage metrics
	analyticsFailuresTotal prometheus.Counter
	analyticsQueueDepth    prometheus.Gauge
	schedulesStored        prometheus.Gauge
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
// Metrics that fail to register still accept observations; they are just
// not exported.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initEngineMetrics(reg)
	s.initServiceMetrics(reg)
	return s
}

func (s *PrometheusSink) initEngineMetrics(reg prometheus.Registerer) {
	s.parsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cronpeek_parser_parses_total",
		Help: "Total number of cron expressions parsed, by outcome.",
	}, []string{"outcome"})

	s.searchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cronpeek_search_searches_total",
		Help: "Total number of next-run searches, by outcome.",
	}, []string{"outcome"})

	s.searchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cronpeek_search_duration_seconds",
		Help:    "Wall-clock duration of a next-run search in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
	})

	s.runsReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cronpeek_search_runs_returned",
		Help:    "Number of run times returned per successful search.",
		Buckets: []float64{1, 5, 10, 25, 50, 100},
	})

	s.register(reg, s.parsesTotal, "cronpeek_parser_parses_total")
	s.register(reg, s.searchesTotal, "cronpeek_search_searches_total")
	s.register(reg, s.searchDuration, "cronpeek_search_duration_seconds")
	s.register(reg, s.runsReturned, "cronpeek_search_runs_returned")
}

func (s *PrometheusSink) initServiceMetrics(reg prometheus.Registerer) {
	s.rateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cronpeek_api_rate_limited_total",
		Help: "Total number of preview requests rejected by the rate limiter.",
	})
	s.analyticsFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cronpeek_analytics_write_failures_total",
		Help: "Total number of preview analytics writes that failed or were skipped by the circuit breaker.",
	})
	s.analyticsQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cronpeek_analytics_queue_depth",
		Help: "Number of preview events buffered for the analytics writer.",
	})
	s.schedulesStored = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cronpeek_store_schedules",
		Help: "Number of saved schedules.",
	})

	s.register(reg, s.rateLimitedTotal, "cronpeek_api_rate_limited_total")
	s.register(reg, s.analyticsFailuresTotal, "cronpeek_analytics_write_failures_total")
	s.register(reg, s.analyticsQueueDepth, "cronpeek_analytics_queue_depth")
	s.register(reg, s.schedulesStored, "cronpeek_store_schedules")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Warn().Str("component", "metrics").Err(err).Msgf("failed to register %s", name)
	}
}

func (s *PrometheusSink) ParseCompleted(outcome string) {
	s.parsesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) SearchCompleted(duration time.Duration, runs int, err error) {
	s.searchDuration.Observe(duration.Seconds())
	s.searchesTotal.WithLabelValues(ClassifyError(err)).Inc()
	if err == nil {
		s.runsReturned.Observe(float64(runs))
	}
}

func (s *PrometheusSink) PreviewRateLimited() {
	s.rateLimitedTotal.Inc()
}

func (s *PrometheusSink) AnalyticsWriteFailed() {
	s.analyticsFailuresTotal.Inc()
}

func (s *PrometheusSink) AnalyticsQueueDepth(depth int) {
	s.analyticsQueueDepth.Set(float64(depth))
}

func (s *PrometheusSink) SchedulesStored(delta int) {
	s.schedulesStored.Add(float64(delta))
}
