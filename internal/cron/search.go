package cron

import (
	"context"
	"time"
)

// MaxSearchIterations bounds the minute scan to roughly two years. Some
// combinations (Feb 31) never match.
const MaxSearchIterations = 2 * 366 * 24 * 60

// ctxCheckEvery is how many candidates are tested between context checks.
const ctxCheckEvery = 4096

// Next returns the earliest matching instant strictly after from, at minute
// resolution, in from's location.
func (e *Expression) Next(from time.Time) (time.Time, error) {
	return e.NextContext(context.Background(), from)
}

// NextContext is Next with cancellation. The scan stops with ctx.Err() when
// the context ends before a match is found.
func (e *Expression) NextContext(ctx context.Context, from time.Time) (time.Time, error) {
	t := roundUpToNextMinute(from)
	for i := 0; i < MaxSearchIterations; i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return time.Time{}, err
			}
		}
		if e.Matches(t) {
			return t, nil
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}, newError(KindSearchExhausted, e.source,
		"could not find the next run within 2 years")
}

// NextN returns the next n matching instants in ascending order.
func (e *Expression) NextN(n int, from time.Time) ([]time.Time, error) {
	return e.NextNContext(context.Background(), n, from)
}

// NextNContext is NextN with cancellation. On error no partial result is
// returned.
func (e *Expression) NextNContext(ctx context.Context, n int, from time.Time) ([]time.Time, error) {
	if n <= 0 {
		return []time.Time{}, nil
	}
	runs := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		r, err := e.NextContext(ctx, t)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
		t = r.Add(time.Minute)
	}
	return runs, nil
}

// roundUpToNextMinute drops seconds and sub-seconds and adds one minute.
func roundUpToNextMinute(t time.Time) time.Time {
	base := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	return base.Add(time.Minute)
}
