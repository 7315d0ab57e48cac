package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"chat_relay/pkg/logger"
)

type RateLimitRepository interface {
	// Allow increments the fixed-window counter for key and reports whether
	// the caller is still under limit, plus the remaining budget.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, error) {
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		r.log.Error("Failed to increment rate limit", "key", key, "error", err)
		return false, 0, err
	}

	if count == 1 {
		r.redis.Expire(ctx, key, window)
	}

	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(limit), remaining, nil
}
