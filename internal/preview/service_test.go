package preview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/djlord-it/cronpeek/internal/cron"
	"github.com/djlord-it/cronpeek/internal/domain"
	"github.com/djlord-it/cronpeek/internal/testutil"
)

type fakeAnalytics struct {
	mu     sync.Mutex
	events []domain.PreviewEvent
	err    error
}

func (f *fakeAnalytics) Record(_ context.Context, event domain.PreviewEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type fakeMetrics struct {
	parses          []string
	searches        int
	searchErrs      int
	analyticsFailed int
}

func (f *fakeMetrics) ParseCompleted(outcome string) { f.parses = append(f.parses, outcome) }

func (f *fakeMetrics) SearchCompleted(_ time.Duration, _ int, err error) {
	f.searches++
	if err != nil {
		f.searchErrs++
	}
}

func (f *fakeMetrics) AnalyticsWriteFailed() { f.analyticsFailed++ }

var epoch = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func newTestService(cfg Config) (*Service, *fakeAnalytics, *fakeMetrics) {
	a := &fakeAnalytics{}
	m := &fakeMetrics{}
	clock := testutil.NewFakeClock(epoch)
	svc := NewService(cfg).WithAnalytics(a).WithMetrics(m).WithClock(clock.Now)
	return svc, a, m
}

func TestNewService_Defaults(t *testing.T) {
	cfg := NewService(Config{}).Config()
	if cfg.DefaultTimezone != "UTC" || cfg.DefaultCount != 5 || cfg.MaxCount != 5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestPreview_DailyExpression(t *testing.T) {
	svc, a, m := newTestService(Config{DefaultCount: 3, MaxCount: 10, SearchTimeout: time.Second})

	res, err := svc.Preview(testutil.TestContext(t), Request{Expression: "  5   4 * * * "})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	want := []time.Time{
		time.Date(2024, 3, 6, 4, 5, 0, 0, time.UTC),
		time.Date(2024, 3, 7, 4, 5, 0, 0, time.UTC),
		time.Date(2024, 3, 8, 4, 5, 0, 0, time.UTC),
	}
	if len(res.Runs) != len(want) {
		t.Fatalf("got %d runs, want %d", len(res.Runs), len(want))
	}
	for i := range want {
		if !res.Runs[i].Equal(want[i]) {
			t.Errorf("run %d = %v, want %v", i, res.Runs[i], want[i])
		}
	}

	if res.Expression != "5 4 * * *" {
		t.Errorf("Expression = %q, want normalized spacing", res.Expression)
	}
	if res.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", res.Timezone)
	}
	if res.Summary != "At 04:05 every day." {
		t.Errorf("Summary = %q", res.Summary)
	}
	if res.Time != "04:05" {
		t.Errorf("Time = %q, want 04:05", res.Time)
	}

	if len(a.events) != 1 || a.events[0].Outcome != domain.PreviewOutcomeOK || a.events[0].Runs != 3 {
		t.Errorf("unexpected analytics events: %+v", a.events)
	}
	if !a.events[0].At.Equal(epoch) {
		t.Errorf("event At = %v, want clock time %v", a.events[0].At, epoch)
	}
	if len(m.parses) != 1 || m.parses[0] != "ok" || m.searches != 1 || m.searchErrs != 0 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}

func TestPreview_NonDailySummary(t *testing.T) {
	svc, _, _ := newTestService(Config{})

	res, err := svc.Preview(context.Background(), Request{Expression: "0 12 15 * *", Count: 1})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if want := "Next run is Fri Mar 15 2024 12:00 (UTC)."; res.Summary != want {
		t.Errorf("Summary = %q, want %q", res.Summary, want)
	}
}

func TestPreview_Timezone(t *testing.T) {
	svc, _, _ := newTestService(Config{})
	ny := testutil.MustLoadLocation(t, "America/New_York")

	res, err := svc.Preview(context.Background(), Request{
		Expression: "0 9 * * *",
		Count:      1,
		Timezone:   "America/New_York",
	})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	// 10:00 UTC is 05:00 EST, so 09:00 the same day.
	want := time.Date(2024, 3, 5, 9, 0, 0, 0, ny)
	if !res.Runs[0].Equal(want) {
		t.Errorf("run = %v, want %v", res.Runs[0], want)
	}
	if res.Runs[0].Location().String() != "America/New_York" {
		t.Errorf("run location = %v", res.Runs[0].Location())
	}
	if res.Timezone != "America/New_York" {
		t.Errorf("Timezone = %q", res.Timezone)
	}
}

func TestPreview_DefaultTimezoneFromConfig(t *testing.T) {
	svc, _, _ := newTestService(Config{DefaultTimezone: "Asia/Tokyo"})

	res, err := svc.Preview(context.Background(), Request{Expression: "0 * * * *", Count: 1})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if res.Timezone != "Asia/Tokyo" {
		t.Errorf("Timezone = %q, want Asia/Tokyo", res.Timezone)
	}
	// 10:00 UTC is 19:00 JST; the next top of the hour is 20:00 JST.
	if got := res.Runs[0].Hour(); got != 20 {
		t.Errorf("hour = %d, want 20", got)
	}
}

func TestPreview_ExplicitFrom(t *testing.T) {
	svc, _, _ := newTestService(Config{})
	from := time.Date(2030, 1, 1, 0, 0, 30, 0, time.UTC)

	res, err := svc.Preview(context.Background(), Request{Expression: "* * * * *", Count: 1, From: from})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if want := time.Date(2030, 1, 1, 0, 1, 0, 0, time.UTC); !res.Runs[0].Equal(want) {
		t.Errorf("run = %v, want %v", res.Runs[0], want)
	}
}

func TestPreview_Count(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  int
	}{
		{"zero uses default", 0, 5},
		{"explicit", 2, 2},
		{"clamped to max", 1000, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(Config{DefaultCount: 5, MaxCount: 10})
			res, err := svc.Preview(context.Background(), Request{Expression: "*/5 * * * *", Count: tt.count})
			if err != nil {
				t.Fatalf("Preview failed: %v", err)
			}
			if len(res.Runs) != tt.want {
				t.Errorf("got %d runs, want %d", len(res.Runs), tt.want)
			}
		})
	}
}

func TestPreview_NegativeCount(t *testing.T) {
	svc, a, _ := newTestService(Config{})

	_, err := svc.Preview(context.Background(), Request{Expression: "* * * * *", Count: -1})
	if !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
	if len(a.events) != 0 {
		t.Errorf("rejected request should not be recorded, got %d events", len(a.events))
	}
}

func TestPreview_InvalidTimezone(t *testing.T) {
	svc, _, _ := newTestService(Config{})

	_, err := svc.Preview(context.Background(), Request{Expression: "* * * * *", Timezone: "Mars/Olympus"})
	if !errors.Is(err, ErrInvalidTimezone) {
		t.Fatalf("expected ErrInvalidTimezone, got %v", err)
	}
}

func TestPreview_ParseError(t *testing.T) {
	svc, a, m := newTestService(Config{})

	_, err := svc.Preview(context.Background(), Request{Expression: "61 * * * *"})
	if !errors.Is(err, cron.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}

	var cerr *cron.Error
	if !errors.As(err, &cerr) || cerr.Field != "minute" {
		t.Errorf("expected minute field error, got %#v", err)
	}

	if len(m.parses) != 1 || m.parses[0] != "out_of_range" {
		t.Errorf("parse outcomes = %v", m.parses)
	}
	if m.searches != 0 {
		t.Errorf("no search should run after a parse error, got %d", m.searches)
	}
	if len(a.events) != 1 || a.events[0].Outcome != "out_of_range" {
		t.Errorf("unexpected analytics events: %+v", a.events)
	}
}

func TestPreview_SearchExhausted(t *testing.T) {
	svc, a, m := newTestService(Config{SearchTimeout: 30 * time.Second})

	_, err := svc.Preview(context.Background(), Request{Expression: "0 0 31 2 *", Count: 1})
	if !errors.Is(err, cron.ErrSearchExhausted) {
		t.Fatalf("expected ErrSearchExhausted, got %v", err)
	}
	if m.searchErrs != 1 {
		t.Errorf("searchErrs = %d, want 1", m.searchErrs)
	}
	if len(a.events) != 1 || a.events[0].Outcome != "search_exhausted" || a.events[0].Runs != 0 {
		t.Errorf("unexpected analytics events: %+v", a.events)
	}
}

func TestPreview_SearchTimeout(t *testing.T) {
	svc, _, _ := newTestService(Config{SearchTimeout: time.Nanosecond})

	_, err := svc.Preview(context.Background(), Request{Expression: "0 0 31 2 *", Count: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestPreview_AnalyticsFailureIsNotFatal(t *testing.T) {
	svc, a, m := newTestService(Config{})
	a.err = errors.New("redis down")

	res, err := svc.Preview(context.Background(), Request{Expression: "0 * * * *", Count: 1})
	if err != nil {
		t.Fatalf("Preview should succeed when analytics fails, got %v", err)
	}
	if len(res.Runs) != 1 {
		t.Errorf("got %d runs, want 1", len(res.Runs))
	}
	if m.analyticsFailed != 1 {
		t.Errorf("analyticsFailed = %d, want 1", m.analyticsFailed)
	}
}

func TestPreview_NoSinks(t *testing.T) {
	svc := NewService(Config{}).WithClock(testutil.NewFakeClock(epoch).Now)

	res, err := svc.Preview(context.Background(), Request{Expression: "30 2 * * *"})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if len(res.Runs) != 5 {
		t.Errorf("got %d runs, want 5", len(res.Runs))
	}
}

func TestRuns(t *testing.T) {
	svc, a, _ := newTestService(Config{})

	runs, err := svc.Runs(context.Background(), "0 0 1 * *", "UTC", 2)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	want := []time.Time{
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	for i := range want {
		if !runs[i].Equal(want[i]) {
			t.Errorf("run %d = %v, want %v", i, runs[i], want[i])
		}
	}
	if len(a.events) != 0 {
		t.Errorf("Runs should not record analytics, got %d events", len(a.events))
	}

	if _, err := svc.Runs(context.Background(), "0 0 1 * *", "Nowhere/Land", 1); !errors.Is(err, ErrInvalidTimezone) {
		t.Errorf("expected ErrInvalidTimezone, got %v", err)
	}
}
