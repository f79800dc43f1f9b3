package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitUserPrefix = "ratelimit:user:"
	rateLimitUserTTL    = 120 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript refills and consumes atomically.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- bucket capacity
	local now = tonumber(ARGV[3])       -- seconds
	local ttl = tonumber(ARGV[4])       -- seconds

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = now - last_update
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckUserRateLimit consumes one request token for userID.
// ratePerMinute == 0 means unlimited.
func (c *Cache) CheckUserRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) *RateLimitResult {
	if ratePerMinute <= 0 {
		return &RateLimitResult{
			Allowed:   true,
			Remaining: int64(burst),
			ResetAt:   time.Now().Add(time.Minute),
		}
	}

	return c.checkRateLimit(ctx, rateLimitUserPrefix+userID, float64(ratePerMinute)/60.0, burst, int(rateLimitUserTTL.Seconds()))
}

// checkRateLimit fails open: a Redis outage never blocks generation requests.
func (c *Cache) checkRateLimit(ctx context.Context, key string, rate float64, burst, ttl int) *RateLimitResult {
	now := time.Now().Unix()

	result, err := tokenBucketScript.Run(ctx, c.client, []string{key}, rate, burst, now, ttl).Int64Slice()
	if err != nil || len(result) != 3 {
		slog.Warn("rate limit check failed, allowing request", "key", key, "error", err)
		return &RateLimitResult{
			Allowed:   true,
			Remaining: int64(burst),
			ResetAt:   time.Now().Add(time.Minute),
		}
	}

	return &RateLimitResult{
		Allowed:    result[0] == 1,
		Remaining:  result[2],
		ResetAt:    time.Now().Add(time.Duration(float64(time.Second) / rate)),
		RetryAfter: time.Duration(result[1]) * time.Second,
	}
}
