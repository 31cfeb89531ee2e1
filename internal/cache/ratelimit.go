package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// rateLimitIPPrefix is the Redis key prefix for per-IP buckets.
	rateLimitIPPrefix = "ratelimit:ip:"
	// rateLimitIPTTL is the TTL for IP rate limit keys.
	rateLimitIPTTL = 60 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript is a Lua script implementing the token bucket algorithm.
// It's atomic and handles token refill and consumption in a single operation.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- max tokens (bucket capacity)
	local now = tonumber(ARGV[3])       -- current time in seconds
	local ttl = tonumber(ARGV[4])       -- TTL in seconds

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = math.max(0, now - last_update)
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckIPRateLimit checks and updates the bucket for scope and IP.
// Scope separates route groups that share a client. The IP is hashed so
// raw addresses never reach Redis.
func (c *Cache) CheckIPRateLimit(ctx context.Context, scope, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %d", ratePerSecond)
	}
	return c.checkRateLimit(ctx, ipRateLimitKey(scope, ip), float64(ratePerSecond), burst, int(rateLimitIPTTL.Seconds()))
}

// checkRateLimit runs the token bucket. On Redis errors it fails open:
// the request is allowed and the error is returned for logging.
func (c *Cache) checkRateLimit(ctx context.Context, key string, rate float64, burst, ttl int) (*RateLimitResult, error) {
	now := time.Now()

	result, err := tokenBucketScript.Run(ctx, c.client,
		[]string{key},
		rate, burst, now.Unix(), ttl,
	).Int64Slice()

	if err != nil {
		return &RateLimitResult{
			Allowed:   true,
			Remaining: int64(burst),
			ResetAt:   now.Add(time.Minute),
		}, fmt.Errorf("rate limit script: %w", err)
	}

	return &RateLimitResult{
		Allowed:    result[0] == 1,
		Remaining:  result[2],
		ResetAt:    now.Add(time.Duration(float64(time.Second) / rate)),
		RetryAfter: time.Duration(result[1]) * time.Second,
	}, nil
}

func ipRateLimitKey(scope, ip string) string {
	return rateLimitIPPrefix + scope + ":" + hashIP(ip)
}

// hashIP creates a truncated SHA256 hash of an IP address.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8]) // 16 hex chars
}
