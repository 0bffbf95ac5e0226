// Package cron parses five-field cron expressions and searches forward for
// the instants they match.
//
// Field grammar: a comma list of *, */n, a, a-b and a-b/n. Months and
// weekdays also accept three-letter names, and weekday 7 means Sunday.
// A range whose start exceeds its end wraps around the field's domain.
//
// Unlike Vixie cron, day-of-month and day-of-week are both required to
// match; there is no OR rule when both are restricted.
package cron

import (
	"strings"
	"time"
)

const fieldCount = 5

// Expression is a parsed schedule. It is immutable and safe for concurrent
// use.
type Expression struct {
	source string

	Minute     FieldSet
	Hour       FieldSet
	DayOfMonth FieldSet
	Month      FieldSet
	DayOfWeek  FieldSet
}

// Parse parses a five-field expression. The first invalid field aborts the
// parse.
func Parse(expr string) (*Expression, error) {
	fields := strings.Fields(expr)
	if len(fields) != fieldCount {
		return nil, newError(KindWrongFieldCount, expr,
			"cron must have exactly %d fields, got %d", fieldCount, len(fields))
	}

	var sets [fieldCount]FieldSet
	for i, f := range fields {
		set, err := parseField(f, domains[i])
		if err != nil {
			if e, ok := err.(*Error); ok {
				e.Field = domains[i].Name
			}
			return nil, err
		}
		sets[i] = set
	}

	return &Expression{
		source:     strings.Join(fields, " "),
		Minute:     sets[0],
		Hour:       sets[1],
		DayOfMonth: sets[2],
		Month:      sets[3],
		DayOfWeek:  sets[4],
	}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(expr string) *Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("cron.MustParse: " + err.Error())
	}
	return e
}

// String returns the expression with fields separated by single spaces.
func (e *Expression) String() string { return e.source }

// Matches reports whether t, read in its own location, satisfies every
// field.
func (e *Expression) Matches(t time.Time) bool {
	return e.Minute.Has(t.Minute()) &&
		e.Hour.Has(t.Hour()) &&
		e.DayOfMonth.Has(t.Day()) &&
		e.Month.Has(int(t.Month())) &&
		e.DayOfWeek.Has(int(t.Weekday()))
}
