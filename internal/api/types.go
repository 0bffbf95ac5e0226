package api

import "time"

type PreviewRequest struct {
	Expression string `json:"expression"`
	Count      int    `json:"count,omitempty"`    // default DEFAULT_RUN_COUNT
	From       string `json:"from,omitempty"`     // RFC 3339, default now
	Timezone   string `json:"timezone,omitempty"` // IANA, default DEFAULT_TIMEZONE
}

type PreviewResponse struct {
	Expression string        `json:"expression"`
	Timezone   string        `json:"timezone"`
	Summary    string        `json:"summary"`
	Time       string        `json:"time"`
	Runs       []RunResponse `json:"runs"`
}

// RunResponse is one upcoming run. At keeps the calendar's UTC offset;
// Display is the list rendering.
type RunResponse struct {
	At      string `json:"at"`
	Display string `json:"display"`
}

type CreateScheduleRequest struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Timezone   string `json:"timezone,omitempty"` // default UTC
}

type ScheduleResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Timezone   string `json:"timezone"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type ListSchedulesResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
}

type NextRunsResponse struct {
	Schedule ScheduleResponse `json:"schedule"`
	Runs     []RunResponse    `json:"runs"`
}

// ErrorResponse carries Kind for engine errors so clients can branch
// without matching on text.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
