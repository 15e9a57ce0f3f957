package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests in fixed windows shared by every instance.
type RedisLimiter struct {
	client redis.Cmdable
	rule   Rule
	prefix string
}

func NewRedisLimiter(client redis.Cmdable, rule Rule, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, rule: rule, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := fmt.Sprintf("%s:%s:%s", l.prefix, l.rule.Name, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{Allowed: true}, fmt.Errorf("redis incr: %w", err)
	}
	// the first hit of a window starts its clock
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.rule.Window).Err(); err != nil {
			return Result{Allowed: true}, fmt.Errorf("redis expire: %w", err)
		}
	}

	res := Result{
		Allowed:   count <= int64(l.rule.Limit),
		Limit:     l.rule.Limit,
		Remaining: l.rule.Limit - int(count),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		ttl, err := l.client.TTL(ctx, redisKey).Result()
		if err != nil || ttl <= 0 {
			ttl = l.rule.Window
		}
		res.RetryAfter = ttl
	}
	return res, nil
}

// Reset clears the counter of key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, fmt.Sprintf("%s:%s:%s", l.prefix, l.rule.Name, key)).Err()
}
