package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ResendKeyPrefix = "resend-limit:"

var (
	ErrResendRateLimited        = errors.New("resend rate limited")
	ErrResendLimiterUnavailable = errors.New("resend limiter unavailable")
)

type ResendConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// ResendLimiter counts resend requests per user in a fixed window. The window
// starts at the first request and is never extended by later ones.
type ResendLimiter struct {
	redis  redis.UniversalClient
	config ResendConfig
}

func NewResendLimiter(redisClient redis.UniversalClient, cfg ResendConfig) *ResendLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return &ResendLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func ResendKey(userID string) string {
	return ResendKeyPrefix + userID
}

// Check increments the counter for userID and returns ErrResendRateLimited
// once the count exceeds MaxAttempts.
func (l *ResendLimiter) Check(ctx context.Context, userID string) error {
	if l == nil {
		return nil
	}
	return l.enforceFixedWindow(ctx, ResendKey(userID))
}

// RetryAfter is the hint surfaced to clients when the budget is exhausted.
func (l *ResendLimiter) RetryAfter() time.Duration {
	if l == nil {
		return 0
	}
	return l.config.Window
}

func (l *ResendLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResendLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrResendLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.MaxAttempts) {
		return ErrResendRateLimited
	}

	return nil
}
