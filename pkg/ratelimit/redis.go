package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window limiter backed by Redis counters, for
// deployments where the login budget should hold across instances.
type Redis struct {
	client   redis.UniversalClient
	attempts int
	window   time.Duration
}

// NewRedis returns a Redis-backed limiter allowing attempts per window.
func NewRedis(client redis.UniversalClient, attempts int, window time.Duration) *Redis {
	return &Redis{client: client, attempts: attempts, window: window}
}

// Check increments the counter for the key and reports whether the attempt
// is within budget. The counter's TTL starts with the first attempt in the
// window.
func (r *Redis) Check(ctx context.Context, purpose, clientKey string) (Result, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", purpose, clientKey)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return Result{Allowed: true}, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return Result{Allowed: true}, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	if count > int64(r.attempts) {
		ttl, err := r.client.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = r.window
		}
		return Result{Allowed: false, RetryAfter: ttl}, nil
	}
	return Result{Allowed: true}, nil
}
