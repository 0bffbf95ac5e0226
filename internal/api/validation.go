package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/djlord-it/cronpeek/internal/cron"
	"github.com/djlord-it/cronpeek/internal/preview"
)

const maxNameLength = 200

func validatePreview(req PreviewRequest) (preview.Request, error) {
	if strings.TrimSpace(req.Expression) == "" {
		return preview.Request{}, fmt.Errorf("expression is required")
	}
	if req.Count < 0 {
		return preview.Request{}, fmt.Errorf("count must not be negative")
	}

	out := preview.Request{
		Expression: req.Expression,
		Count:      req.Count,
		Timezone:   req.Timezone,
	}

	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return preview.Request{}, fmt.Errorf("invalid from: must be RFC 3339")
		}
		out.From = from
	}

	return out, nil
}

// validateCreateSchedule checks the request and returns the expression in
// its normalized form. Engine errors are wrapped so their kind survives.
func validateCreateSchedule(req CreateScheduleRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("name must be at most %d characters", maxNameLength)
	}

	if strings.TrimSpace(req.Expression) == "" {
		return "", fmt.Errorf("expression is required")
	}
	expr, err := cron.Parse(req.Expression)
	if err != nil {
		return "", fmt.Errorf("invalid expression: %w", err)
	}

	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if err := validateTimezone(tz); err != nil {
		return "", fmt.Errorf("invalid timezone: %w", err)
	}

	return expr.String(), nil
}

func validateTimezone(tz string) error {
	_, err := time.LoadLocation(tz)
	return err
}
