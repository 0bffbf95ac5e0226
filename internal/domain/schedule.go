package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule is a saved, named cron expression. The expression is stored as
// text and re-parsed whenever it is evaluated.
type Schedule struct {
	ID uuid.UUID

	Name       string
	Expression string
	Timezone   string // IANA timezone, defaults to UTC

	CreatedAt time.Time
	UpdatedAt time.Time
}
