package ratelimit

import (
	"context"
	"time"

	redisadapter "github.com/tickethub/tickethub/internal/adapters/redis"
)

// RateLimiter counts requests per key in redis with a rolling window.
type RateLimiter struct {
	redis *redisadapter.Cache
}

func New(redis *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false
	}

	return incr.Val() <= int64(rate)
}
