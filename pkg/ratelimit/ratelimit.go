// Package ratelimit implements the two-backend limiter from spec §5: a
// distributed sliding-window limiter backed by Redis sorted sets (grounded
// on itsneelabh-gomind's EnhancedRedisRateLimiter) for multi-instance
// deployments, and an in-process golang.org/x/time/rate token bucket
// fallback for single-instance or Redis-unavailable operation. Both
// implement the same Limiter interface so callers don't know which backend
// is active.
package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// Limiter reports whether a request against key should be allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// checkAndConsumeScript atomically trims the sliding window, counts
// remaining entries, and admits the new request if under limit -- mirroring
// the ZSET sliding-window structure (score = timestamp, member = request id)
// the pack's Redis rate limiters use, made atomic via EVAL so concurrent
// callers across instances can't both observe "under limit" for the same
// slot.
var checkAndConsumeScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, 0, now - window)
local count = redis.call("ZCARD", key)
if count >= limit then
	return 0
end
redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window)
return 1
`)

// RedisLimiter is the distributed sliding-window backend.
type RedisLimiter struct {
	client     *redis.Client
	maxRPM     int
	windowSecs int
}

// NewRedisLimiter builds a RedisLimiter against an already-connected client.
func NewRedisLimiter(client *redis.Client, maxRPM, windowSecs int) *RedisLimiter {
	return &RedisLimiter{client: client, maxRPM: maxRPM, windowSecs: windowSecs}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixMilli()
	windowMS := int64(r.windowSecs) * 1000
	member := key + ":" + time.Now().Format(time.RFC3339Nano)
	res, err := checkAndConsumeScript.Run(ctx, r.client, []string{"ratelimit:" + key}, now, windowMS, r.maxRPM, member).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// InProcessLimiter is the golang.org/x/time/rate fallback used when Redis is
// unavailable or the deployment is single-instance.
type InProcessLimiter struct {
	limiter *rate.Limiter
}

// NewInProcessLimiter builds a token-bucket limiter allowing maxRPM requests
// per minute with a burst equal to maxRPM.
func NewInProcessLimiter(maxRPM int) *InProcessLimiter {
	perSecond := rate.Limit(float64(maxRPM) / 60)
	return &InProcessLimiter{limiter: rate.NewLimiter(perSecond, maxRPM)}
}

func (l *InProcessLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return l.limiter.Allow(), nil
}

// Fallback wraps a primary limiter (typically Redis-backed) and falls back
// to an in-process limiter if the primary errors, so a Redis outage
// degrades rate limiting accuracy rather than blocking every request.
type Fallback struct {
	primary  Limiter
	fallback Limiter
}

// NewFallback builds a Fallback limiter.
func NewFallback(primary, fallback Limiter) *Fallback {
	return &Fallback{primary: primary, fallback: fallback}
}

func (f *Fallback) Allow(ctx context.Context, key string) (bool, error) {
	allowed, err := f.primary.Allow(ctx, key)
	if err != nil {
		return f.fallback.Allow(ctx, key)
	}
	return allowed, nil
}
