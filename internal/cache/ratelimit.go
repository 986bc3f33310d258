package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTooManyAttempts is returned once a key exceeds its attempt budget
var ErrTooManyAttempts = errors.New("too many attempts, try again later")

// attemptCounter is the subset of the redis client the limiter uses
type attemptCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RateLimiter counts attempts per key in fixed redis windows
type RateLimiter struct {
	redis  attemptCounter
	limit  int64
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit attempts per window
func NewRateLimiter(client attemptCounter, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  client,
		limit:  limit,
		window: window,
	}
}

// Check records an attempt for key
func (r *RateLimiter) Check(ctx context.Context, key string) error {
	key = fmt.Sprintf("login_attempts:%s", key)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	if count == 1 {
		if err := r.redis.Expire(ctx, key, r.window).Err(); err != nil {
			// A counter without a TTL would never reset.
			r.redis.Del(ctx, key)
			return fmt.Errorf("failed to set attempt window: %w", err)
		}
	}

	if count > r.limit {
		return ErrTooManyAttempts
	}

	return nil
}

// Reset clears the attempts recorded for key
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	return r.redis.Del(ctx, fmt.Sprintf("login_attempts:%s", key)).Err()
}
