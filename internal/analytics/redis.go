// Package analytics counts preview requests in Redis, bucketed by time
// window and outcome.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/djlord-it/cronpeek/internal/circuitbreaker"
	"github.com/djlord-it/cronpeek/internal/domain"
)

// keyPrefix namespaces every counter key.
const keyPrefix = "cronpeek:previews"

// breakerKey identifies this sink in a shared circuit breaker.
const breakerKey = "redis-analytics"

type RedisSink struct {
	client  *redis.Client
	config  domain.AnalyticsConfig
	breaker *circuitbreaker.CircuitBreaker
}

func NewRedisSink(client *redis.Client, config domain.AnalyticsConfig) *RedisSink {
	return &RedisSink{client: client, config: config}
}

// WithCircuitBreaker guards writes with cb. Returns the sink for chaining.
func (s *RedisSink) WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) *RedisSink {
	s.breaker = cb
	return s
}

// Record increments the counter for the event's outcome and time bucket.
// When the breaker is open the write is skipped and ErrCircuitOpen is
// returned.
func (s *RedisSink) Record(ctx context.Context, event domain.PreviewEvent) error {
	if s.breaker != nil {
		if err := s.breaker.Allow(breakerKey); err != nil {
			return err
		}
	}

	key := buildKey(event.Outcome, event.At, s.config.Window)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.config.Retention)

	_, err := pipe.Exec(ctx)
	if err != nil {
		if s.breaker != nil {
			s.breaker.RecordFailure(breakerKey)
		}
		return fmt.Errorf("redis pipeline: %w", err)
	}

	if s.breaker != nil {
		s.breaker.RecordSuccess(breakerKey)
	}
	return nil
}

// Count returns the counter for outcome in the bucket containing t.
// A missing key counts as zero.
func (s *RedisSink) Count(ctx context.Context, outcome domain.PreviewOutcome, t time.Time) (int64, error) {
	n, err := s.client.Get(ctx, buildKey(outcome, t, s.config.Window)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return n, nil
}

// Ping checks connectivity for the health endpoint.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// BreakerState reports the guarding breaker's state, "closed" when unguarded.
func (s *RedisSink) BreakerState() string {
	if s.breaker == nil {
		return "closed"
	}
	return s.breaker.State(breakerKey)
}

func buildKey(outcome domain.PreviewOutcome, t time.Time, window time.Duration) string {
	bucket := truncateToBucket(t, window)
	return fmt.Sprintf("%s:%s:%s", keyPrefix, outcome, bucket)
}

func truncateToBucket(t time.Time, window time.Duration) string {
	t = t.UTC()
	switch window {
	case time.Minute:
		return t.Format("200601021504")
	case 5 * time.Minute:
		minute := (t.Minute() / 5) * 5
		return t.Format("2006010215") + fmt.Sprintf("%02d", minute)
	case time.Hour:
		return t.Format("2006010215")
	default:
		return t.Format("200601021504")
	}
}
