package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter enforces per-key request limits.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NoopLimiter allows every request.
type NoopLimiter struct{}

func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

func (l *NoopLimiter) Allow(context.Context, string) (bool, error) {
	return true, nil
}

// ProviderKey is the limiter key for reviews sent through one provider.
func ProviderKey(providerID string) string {
	return "review:" + providerID
}

// slidingWindow trims expired entries, then records the request only if
// the window still has room. Rejected requests do not consume capacity.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local member = ARGV[4]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
	local count = redis.call('ZCARD', key)
	if count >= limit then
		return 0
	end
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window * 2)
	return 1
`)

// RedisLimiter is a distributed sliding-window limiter backed by a sorted set
// per key.
type RedisLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisLimiter allows limit requests per window for each key. A limit of
// zero or less disables limiting.
func NewRedisLimiter(client redis.UniversalClient, limit int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

// Allow records one request for key if the window has room.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if rl.limit <= 0 {
		return true, nil
	}

	res, err := slidingWindow.Run(ctx, rl.client,
		[]string{rl.prefix + key},
		rl.now().UnixMilli(),
		rl.window.Milliseconds(),
		rl.limit,
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return res == 1, nil
}

// Usage returns the number of requests in the current window.
func (rl *RedisLimiter) Usage(ctx context.Context, key string) (int64, error) {
	redisKey := rl.prefix + key
	windowStart := rl.now().Add(-rl.window).UnixMilli()

	if err := rl.client.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%d", windowStart)).Err(); err != nil {
		return 0, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := rl.client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get current usage: %w", err)
	}
	return count, nil
}

// Reset clears the window for key.
func (rl *RedisLimiter) Reset(ctx context.Context, key string) error {
	return rl.client.Del(ctx, rl.prefix+key).Err()
}
