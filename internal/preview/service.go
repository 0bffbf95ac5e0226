// Package preview answers "when does this expression fire next" requests.
// It resolves the calendar, runs the bounded search under a deadline and
// renders the short human summary shown next to the run list.
package preview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/djlord-it/cronpeek/internal/cron"
	"github.com/djlord-it/cronpeek/internal/domain"
	"github.com/djlord-it/cronpeek/internal/metrics"
)

var (
	ErrInvalidCount    = errors.New("count must not be negative")
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// AnalyticsSink receives one event per answered preview.
type AnalyticsSink interface {
	Record(ctx context.Context, event domain.PreviewEvent) error
}

// MetricsSink is the subset of metrics.Sink the service reports to.
type MetricsSink interface {
	ParseCompleted(outcome string)
	SearchCompleted(duration time.Duration, runs int, err error)
	AnalyticsWriteFailed()
}

// Config holds the request defaults and limits.
type Config struct {
	DefaultTimezone string
	DefaultCount    int
	MaxCount        int
	SearchTimeout   time.Duration // 0 = no deadline beyond the caller's
}

type Request struct {
	Expression string
	Count      int       // 0 = DefaultCount, clamped to MaxCount
	From       time.Time // zero = now
	Timezone   string    // IANA name, empty = DefaultTimezone
}

type Result struct {
	Expression string // normalized, single-spaced
	Timezone   string
	Runs       []time.Time // in Timezone, ascending
	Summary    string
	Time       string // HH:MM of the first run
}

type Service struct {
	cfg       Config
	analytics AnalyticsSink // optional, nil = disabled
	metrics   MetricsSink   // optional, nil = disabled
	now       func() time.Time
}

func NewService(cfg Config) *Service {
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "UTC"
	}
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = 5
	}
	if cfg.MaxCount < cfg.DefaultCount {
		cfg.MaxCount = cfg.DefaultCount
	}
	return &Service{cfg: cfg, now: time.Now}
}

func (s *Service) WithAnalytics(sink AnalyticsSink) *Service {
	s.analytics = sink
	return s
}

// WithMetrics attaches a metrics sink to the service.
func (s *Service) WithMetrics(sink MetricsSink) *Service {
	s.metrics = sink
	return s
}

// WithClock replaces the time source used when a request has no From.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Config returns the effective configuration after defaults.
func (s *Service) Config() Config {
	return s.cfg
}

// Preview parses req.Expression and returns its next runs. Parse failures
// are *cron.Error values; a search that outlives SearchTimeout returns
// context.DeadlineExceeded.
func (s *Service) Preview(ctx context.Context, req Request) (*Result, error) {
	count, err := s.resolveCount(req.Count)
	if err != nil {
		return nil, err
	}

	loc, err := s.location(req.Timezone)
	if err != nil {
		return nil, err
	}

	from := req.From
	if from.IsZero() {
		from = s.now()
	}
	from = from.In(loc)

	expr, err := cron.Parse(req.Expression)
	if s.metrics != nil {
		s.metrics.ParseCompleted(metrics.ClassifyError(err))
	}
	if err != nil {
		s.record(ctx, req.Expression, err, 0)
		return nil, err
	}

	runs, err := s.search(ctx, expr, count, from)
	s.record(ctx, expr.String(), err, len(runs))
	if err != nil {
		return nil, err
	}

	return &Result{
		Expression: expr.String(),
		Timezone:   loc.String(),
		Runs:       runs,
		Summary:    Summarize(expr.String(), runs, loc),
		Time:       clockTime(runs),
	}, nil
}

// Runs evaluates an already-saved expression from now. It applies the same
// count rules and deadline as Preview but records no analytics.
func (s *Service) Runs(ctx context.Context, expression, timezone string, count int) ([]time.Time, error) {
	n, err := s.resolveCount(count)
	if err != nil {
		return nil, err
	}
	loc, err := s.location(timezone)
	if err != nil {
		return nil, err
	}
	expr, err := cron.Parse(expression)
	if err != nil {
		return nil, err
	}
	return s.search(ctx, expr, n, s.now().In(loc))
}

func (s *Service) location(tz string) (*time.Location, error) {
	if tz == "" {
		tz = s.cfg.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc, nil
}

func (s *Service) resolveCount(n int) (int, error) {
	switch {
	case n < 0:
		return 0, ErrInvalidCount
	case n == 0:
		return s.cfg.DefaultCount, nil
	case s.cfg.MaxCount > 0 && n > s.cfg.MaxCount:
		return s.cfg.MaxCount, nil
	default:
		return n, nil
	}
}

func (s *Service) search(ctx context.Context, expr *cron.Expression, n int, from time.Time) ([]time.Time, error) {
	if s.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SearchTimeout)
		defer cancel()
	}

	start := time.Now()
	runs, err := expr.NextNContext(ctx, n, from)
	if s.metrics != nil {
		s.metrics.SearchCompleted(time.Since(start), len(runs), err)
	}
	if err != nil {
		log.Debug().Str("component", "preview").Str("expr", expr.String()).Err(err).Msg("search failed")
	}
	return runs, err
}

// record writes analytics as a best-effort side-effect.
// A failed write never fails the preview.
func (s *Service) record(ctx context.Context, expr string, err error, runs int) {
	if s.analytics == nil {
		return
	}
	event := domain.PreviewEvent{
		Expression: expr,
		Outcome:    domain.PreviewOutcome(metrics.ClassifyError(err)),
		Runs:       runs,
		At:         s.now(),
	}
	if werr := s.analytics.Record(ctx, event); werr != nil {
		if s.metrics != nil {
			s.metrics.AnalyticsWriteFailed()
		}
		log.Warn().Str("component", "preview").Err(werr).Msg("analytics write failed")
	}
}
