package domain

import "time"

// PreviewOutcome labels the result of one preview request. Failed previews
// use the cron error kind.
type PreviewOutcome string

const PreviewOutcomeOK PreviewOutcome = "ok"

// PreviewEvent is recorded for every preview the service answers.
type PreviewEvent struct {
	Expression string
	Outcome    PreviewOutcome
	Runs       int
	At         time.Time
}

type AnalyticsConfig struct {
	Window    time.Duration // 1m, 5m, 1h
	Retention time.Duration // TTL, must be >= Window
}
