package config

import (
	"fmt"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	durations := []struct {
		field string
		value string
	}{
		{"SEARCH_TIMEOUT", cfg.SearchTimeoutStr},
		{"DB_OP_TIMEOUT", cfg.DBOpTimeoutStr},
		{"DB_CONN_MAX_LIFETIME", cfg.DBConnMaxLifetimeStr},
		{"DB_CONN_MAX_IDLE_TIME", cfg.DBConnMaxIdleTimeStr},
		{"HTTP_SHUTDOWN_TIMEOUT", cfg.HTTPShutdownTimeoutStr},
		{"ANALYTICS_WINDOW", cfg.AnalyticsWindowStr},
		{"ANALYTICS_RETENTION", cfg.AnalyticsRetentionStr},
		{"CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldownStr},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if v <= 0 {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: "must be positive",
			})
		}
	}

	// ANALYTICS_WINDOW selects a key bucket format.
	switch cfg.AnalyticsWindow {
	case 0, time.Minute, 5 * time.Minute, time.Hour:
	default:
		errs = append(errs, ValidationError{
			Field:   "ANALYTICS_WINDOW",
			Message: fmt.Sprintf("must be 1m, 5m or 1h, got %q", cfg.AnalyticsWindowStr),
		})
	}
	if cfg.AnalyticsRetention > 0 && cfg.AnalyticsRetention < cfg.AnalyticsWindow {
		errs = append(errs, ValidationError{
			Field:   "ANALYTICS_RETENTION",
			Message: "must be at least ANALYTICS_WINDOW",
		})
	}

	if cfg.LogFormat != "" && cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		errs = append(errs, ValidationError{
			Field:   "LOG_FORMAT",
			Message: fmt.Sprintf("must be 'console' or 'json', got %q", cfg.LogFormat),
		})
	}
	if cfg.LogLevel != "" && !logLevels[cfg.LogLevel] {
		errs = append(errs, ValidationError{
			Field:   "LOG_LEVEL",
			Message: fmt.Sprintf("unknown level %q", cfg.LogLevel),
		})
	}

	if cfg.DefaultTimezone != "" {
		if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
			errs = append(errs, ValidationError{
				Field:   "DEFAULT_TIMEZONE",
				Message: fmt.Sprintf("unknown timezone: %v", err),
			})
		}
	}

	if cfg.DefaultRunCount > cfg.MaxRunCount {
		errs = append(errs, ValidationError{
			Field:   "DEFAULT_RUN_COUNT",
			Message: fmt.Sprintf("must not exceed MAX_RUN_COUNT (%d)", cfg.MaxRunCount),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
