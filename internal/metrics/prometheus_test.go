package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/djlord-it/cronpeek/internal/cron"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)
	return sink, reg
}

func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func getCounterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mf := findFamily(t, reg, name)
	if mf == nil {
		return 0
	}
	for _, m := range mf.GetMetric() {
		if m.GetCounter() != nil {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func getGaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mf := findFamily(t, reg, name)
	if mf == nil {
		return 0
	}
	for _, m := range mf.GetMetric() {
		if m.GetGauge() != nil {
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func getCounterVecValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mf := findFamily(t, reg, name)
	if mf == nil {
		return 0
	}
	for _, m := range mf.GetMetric() {
		if matchLabels(m.GetLabel(), labels) {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func getHistogramCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	mf := findFamily(t, reg, name)
	if mf == nil {
		return 0
	}
	for _, m := range mf.GetMetric() {
		if m.GetHistogram() != nil {
			return m.GetHistogram().GetSampleCount()
		}
	}
	return 0
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; !ok || v != p.GetValue() {
			return false
		}
	}
	return true
}

func TestPrometheusSink_Registration(t *testing.T) {
	// Should not panic or error with a fresh registry.
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)
	if sink == nil {
		t.Fatal("NewPrometheusSink returned nil")
	}
}

func TestPrometheusSink_ParseCompleted(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.ParseCompleted(OutcomeOK)
	sink.ParseCompleted(OutcomeOK)
	sink.ParseCompleted(string(cron.KindInvalidStep))

	ok := getCounterVecValue(t, reg, "cronpeek_parser_parses_total", map[string]string{"outcome": "ok"})
	if ok != 2 {
		t.Errorf("outcome=ok = %v, want 2", ok)
	}
	bad := getCounterVecValue(t, reg, "cronpeek_parser_parses_total", map[string]string{"outcome": "invalid_step"})
	if bad != 1 {
		t.Errorf("outcome=invalid_step = %v, want 1", bad)
	}
}

func TestPrometheusSink_SearchCompleted(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.SearchCompleted(2*time.Millisecond, 5, nil)
	sink.SearchCompleted(900*time.Millisecond, 0, cron.ErrSearchExhausted)
	sink.SearchCompleted(2*time.Second, 0, errors.New("unexpected"))

	if v := getCounterVecValue(t, reg, "cronpeek_search_searches_total", map[string]string{"outcome": "ok"}); v != 1 {
		t.Errorf("outcome=ok = %v, want 1", v)
	}
	if v := getCounterVecValue(t, reg, "cronpeek_search_searches_total", map[string]string{"outcome": "search_exhausted"}); v != 1 {
		t.Errorf("outcome=search_exhausted = %v, want 1", v)
	}
	if v := getCounterVecValue(t, reg, "cronpeek_search_searches_total", map[string]string{"outcome": "other"}); v != 1 {
		t.Errorf("outcome=other = %v, want 1", v)
	}

	if n := getHistogramCount(t, reg, "cronpeek_search_duration_seconds"); n != 3 {
		t.Errorf("duration samples = %d, want 3", n)
	}
	// Failed searches do not observe a run count.
	if n := getHistogramCount(t, reg, "cronpeek_search_runs_returned"); n != 1 {
		t.Errorf("runs_returned samples = %d, want 1", n)
	}
}

func TestPrometheusSink_Counters(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.PreviewRateLimited()
	sink.PreviewRateLimited()
	sink.AnalyticsWriteFailed()

	if v := getCounterValue(t, reg, "cronpeek_api_rate_limited_total"); v != 2 {
		t.Errorf("rate_limited_total = %v, want 2", v)
	}
	if v := getCounterValue(t, reg, "cronpeek_analytics_write_failures_total"); v != 1 {
		t.Errorf("analytics_write_failures_total = %v, want 1", v)
	}
}

func TestPrometheusSink_SchedulesStored(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.SchedulesStored(1)
	sink.SchedulesStored(1)
	sink.SchedulesStored(-1)

	if v := getGaugeValue(t, reg, "cronpeek_store_schedules"); v != 1 {
		t.Errorf("store_schedules = %v, want 1", v)
	}
}

func TestPrometheusSink_AnalyticsQueueDepth(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.AnalyticsQueueDepth(7)
	sink.AnalyticsQueueDepth(2)

	if v := getGaugeValue(t, reg, "cronpeek_analytics_queue_depth"); v != 2 {
		t.Errorf("analytics_queue_depth = %v, want 2", v)
	}
}

func TestPrometheusSink_DuplicateRegistration_NoPanic(t *testing.T) {
	// Registering metrics twice with the same registry should not panic.
	// The second registration will fail, but should be handled gracefully.
	reg := prometheus.NewRegistry()

	sink1 := NewPrometheusSink(reg)
	if sink1 == nil {
		t.Fatal("first NewPrometheusSink returned nil")
	}

	sink2 := NewPrometheusSink(reg)
	if sink2 == nil {
		t.Fatal("second NewPrometheusSink returned nil")
	}
	// The unregistered collectors still accept observations.
	sink2.ParseCompleted(OutcomeOK)
	sink2.SearchCompleted(time.Millisecond, 1, nil)
}

// Verify PrometheusSink implements Sink interface.
var _ Sink = (*PrometheusSink)(nil)
