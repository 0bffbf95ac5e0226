package postgres

// querySchema mirrors migrations/001_create_schedules.sql so serve can
// bootstrap an empty database.
const querySchema = `
CREATE TABLE IF NOT EXISTS schedules (
    id              UUID PRIMARY KEY,
    name            TEXT NOT NULL,
    cron_expression TEXT NOT NULL,
    timezone        TEXT NOT NULL DEFAULT 'UTC',
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS schedules_name_key ON schedules (name);
CREATE INDEX IF NOT EXISTS schedules_created_at_idx ON schedules (created_at DESC);
`

const queryInsertSchedule = `
INSERT INTO schedules (id, name, cron_expression, timezone, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

const queryGetSchedule = `
SELECT id, name, cron_expression, timezone, created_at, updated_at
FROM schedules
WHERE id = $1
`

const queryListSchedules = `
SELECT id, name, cron_expression, timezone, created_at, updated_at
FROM schedules
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2
`

const queryDeleteSchedule = `
DELETE FROM schedules WHERE id = $1
RETURNING id`

const queryCountSchedules = `
SELECT COUNT(*) FROM schedules
`
