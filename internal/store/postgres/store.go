// Package postgres stores saved schedules in PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/djlord-it/cronpeek/internal/api"
	"github.com/djlord-it/cronpeek/internal/domain"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// Store implements api.Store using PostgreSQL.
type Store struct {
	db        *sql.DB
	opTimeout time.Duration
}

// New creates a new PostgreSQL store. Every operation runs under opTimeout
// unless the caller's context ends sooner; 0 disables the per-op deadline.
func New(db *sql.DB, opTimeout time.Duration) *Store {
	return &Store{db: db, opTimeout: opTimeout}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Migrate creates the schedules table and its indexes if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, querySchema)
	return err
}

// CreateSchedule inserts a schedule.
// Returns domain.ErrDuplicateName if the name is taken.
func (s *Store) CreateSchedule(ctx context.Context, schedule domain.Schedule) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, queryInsertSchedule,
		schedule.ID,
		schedule.Name,
		schedule.Expression,
		schedule.Timezone,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return domain.ErrDuplicateName
		}
		return err
	}
	return nil
}

// GetSchedule returns a schedule by ID, or domain.ErrNotFound.
func (s *Store) GetSchedule(ctx context.Context, id uuid.UUID) (domain.Schedule, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var sched domain.Schedule
	err := s.db.QueryRowContext(ctx, queryGetSchedule, id).Scan(
		&sched.ID,
		&sched.Name,
		&sched.Expression,
		&sched.Timezone,
		&sched.CreatedAt,
		&sched.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Schedule{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Schedule{}, err
	}
	return sched, nil
}

// ListSchedules returns schedules newest first, paginated by limit and offset.
func (s *Store) ListSchedules(ctx context.Context, limit, offset int) ([]domain.Schedule, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListSchedules, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Schedule
	for rows.Next() {
		var sched domain.Schedule
		err := rows.Scan(
			&sched.ID,
			&sched.Name,
			&sched.Expression,
			&sched.Timezone,
			&sched.CreatedAt,
			&sched.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, sched)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteSchedule removes a schedule. Returns domain.ErrNotFound if no row
// had that ID.
func (s *Store) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var deletedID uuid.UUID
	err := s.db.QueryRowContext(ctx, queryDeleteSchedule, id).Scan(&deletedID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// CountSchedules returns the number of saved schedules.
func (s *Store) CountSchedules(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, queryCountSchedules).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique violation.
func isDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// Compile-time interface assertion
var _ api.Store = (*Store)(nil)
