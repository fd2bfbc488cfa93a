package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog-admin/internal/util"
)

const loginRateLimitPrefix = "blog_admin:login_rate_limit:"

// Evaluator runs a Lua script. *client.RedisClient satisfies it.
type Evaluator interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
	Del(ctx context.Context, keys ...string) error
}

// Sliding window over a sorted set scored by unix milliseconds. Members are
// unique per attempt so concurrent requests in the same millisecond all count.
const slidingWindowScript = `
    local key = KEYS[1]
    local now = tonumber(ARGV[1])
    local window_start = tonumber(ARGV[2])
    local limit = tonumber(ARGV[3])
    local member = ARGV[4]
    local window_ms = tonumber(ARGV[5])

    redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

    local current_count = redis.call('ZCARD', key)
    if current_count < limit then
        redis.call('ZADD', key, now, member)
        redis.call('PEXPIRE', key, window_ms)
        return {1, current_count + 1, 0}
    end

    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local retry_after = 0
    if oldest[2] then
        retry_after = tonumber(oldest[2]) + window_ms - now
    end
    return {0, current_count, retry_after}
`

// RateLimitResult reports one limiter decision.
type RateLimitResult struct {
	Allowed    bool
	Count      int
	Limit      int
	RetryAfter time.Duration
}

// RateLimitCache limits login attempts per client identifier.
type RateLimitCache struct {
	client Evaluator
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimitCache(client Evaluator, limit int, window time.Duration) *RateLimitCache {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimitCache{client: client, limit: limit, window: window, now: time.Now}
}

// Allow records an attempt for key and reports whether it is within the limit.
// Rejected attempts are not recorded.
func (c *RateLimitCache) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	now := c.now().UnixMilli()
	windowMs := c.window.Milliseconds()

	raw, err := c.client.Eval(ctx, slidingWindowScript, []string{loginRateLimitPrefix + key},
		now, now-windowMs, c.limit, fmt.Sprintf("%d-%s", now, uuid.New().String()), windowMs)
	if err != nil {
		util.Error("Failed to execute sliding window rate limit",
			zap.String("key", key),
			zap.Int("limit", c.limit),
			zap.Duration("window", c.window),
			zap.Error(err))
		return RateLimitResult{}, fmt.Errorf("failed to execute sliding window rate limit: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return RateLimitResult{}, fmt.Errorf("unexpected result format from sliding window script")
	}
	allowed, _ := values[0].(int64)
	count, _ := values[1].(int64)
	retryMs, _ := values[2].(int64)

	result := RateLimitResult{
		Allowed:    allowed == 1,
		Count:      int(count),
		Limit:      c.limit,
		RetryAfter: time.Duration(retryMs) * time.Millisecond,
	}

	util.Debug("Sliding window rate limit check",
		zap.String("key", key),
		zap.Bool("allowed", result.Allowed),
		zap.Int("current_count", result.Count),
		zap.Int("limit", c.limit))

	return result, nil
}

// Reset forgets all attempts for key.
func (c *RateLimitCache) Reset(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, loginRateLimitPrefix+key); err != nil {
		return fmt.Errorf("failed to reset rate limit counter: %w", err)
	}
	return nil
}
