package cron

import (
	"errors"
	"fmt"
)

// ErrorKind classifies parse and search failures so callers can branch
// without inspecting messages.
type ErrorKind string

const (
	KindWrongFieldCount ErrorKind = "wrong_field_count"
	KindMissingField    ErrorKind = "missing_field"
	KindInvalidStep     ErrorKind = "invalid_step"
	KindInvalidToken    ErrorKind = "invalid_token"
	KindOutOfRange      ErrorKind = "out_of_range"
	KindSearchExhausted ErrorKind = "search_exhausted"
)

// Sentinels for errors.Is. A *Error matches the sentinel of its kind.
var (
	ErrWrongFieldCount = &Error{Kind: KindWrongFieldCount}
	ErrMissingField    = &Error{Kind: KindMissingField}
	ErrInvalidStep     = &Error{Kind: KindInvalidStep}
	ErrInvalidToken    = &Error{Kind: KindInvalidToken}
	ErrOutOfRange      = &Error{Kind: KindOutOfRange}
	ErrSearchExhausted = &Error{Kind: KindSearchExhausted}
)

// Error is returned by Parse and the search methods.
type Error struct {
	Kind  ErrorKind
	Field string // field name, empty for expression-level errors
	Token string // offending input, if any
	Msg   string
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, msg)
	}
	return msg
}

// Is reports kind equality, so errors.Is(err, ErrOutOfRange) works for any
// out-of-range error regardless of field or token.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, token, format string, args ...any) *Error {
	return &Error{Kind: kind, Token: token, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a cron error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
