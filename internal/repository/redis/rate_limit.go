package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	red "github.com/redis/go-redis/v9"
)

const defaultRateLimitPrefix = "clientdesk:rate-limit"

// RateLimitRepository persists login attempt timestamps in Redis sorted sets,
// backing the sliding-window gate in front of the login endpoint.
type RateLimitRepository struct {
	client *red.Client
	prefix string
	ttl    time.Duration
}

// NewRateLimitRepository constructs a sliding-window attempt store.
func NewRateLimitRepository(client *red.Client, keyPrefix string, ttl time.Duration) *RateLimitRepository {
	if keyPrefix == "" {
		keyPrefix = defaultRateLimitPrefix
	}
	return &RateLimitRepository{client: client, prefix: keyPrefix, ttl: ttl}
}

// RecordAttempt stores the attempt timestamp and applies the retention TTL.
func (r *RateLimitRepository) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := r.key(identifier)
	member := red.Z{Score: float64(at.UnixNano()), Member: at.UnixNano()}

	if err := r.client.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}

	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}

	return nil
}

// CountAttempts returns how many attempts fall inside the window ending at the
// reference moment, trimming older entries first.
func (r *RateLimitRepository) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	key := r.key(identifier)
	threshold := strconv.FormatInt(reference.Add(-window).UnixNano(), 10)

	if err := r.client.ZRemRangeByScore(ctx, key, "-inf", "("+threshold).Err(); err != nil {
		return 0, fmt.Errorf("redis zremrangebyscore: %w", err)
	}

	count, err := r.client.ZCount(ctx, key, threshold, strconv.FormatInt(reference.UnixNano(), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}

	return int(count), nil
}

// OldestAttempt returns the earliest attempt remaining inside the window,
// used to compute Retry-After hints.
func (r *RateLimitRepository) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}

	key := r.key(identifier)
	min := strconv.FormatInt(reference.Add(-window).UnixNano(), 10)
	max := strconv.FormatInt(reference.UnixNano(), 10)

	values, err := r.client.ZRangeByScore(ctx, key, &red.ZRangeBy{Min: min, Max: max, Count: 1}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis zrangebyscore: %w", err)
	}
	if len(values) == 0 {
		return time.Time{}, false, nil
	}

	nanos, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse attempt timestamp: %w", err)
	}

	return time.Unix(0, nanos), true, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	return fmt.Sprintf("%s:%s", r.prefix, identifier)
}
