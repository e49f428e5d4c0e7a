package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/insureportal/portal-api/internal/api/metrics"
	"github.com/insureportal/portal-api/internal/core/ports"
)

const (
	rateLimitPrefix  = "rl:"
	rateLimitTimeout = 2 * time.Second
)

// rateLimitScript increments the counter and sets its expiry on first use,
// returning {count, pttl}.
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RateLimiter is a fixed-window limiter shared by every instance talking to
// the same Redis. Keys are rl:<key>:<window bucket> and expire with the
// window. When Redis fails the decision comes from the fallback limiter.
type RateLimiter struct {
	client   *redis.Client
	limit    int
	window   time.Duration
	fallback ports.RateLimiter
	log      zerolog.Logger
	now      func() time.Time
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration, fallback ports.RateLimiter, log zerolog.Logger) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		client:   client,
		limit:    limit,
		window:   window,
		fallback: fallback,
		log:      log,
		now:      time.Now,
	}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) ports.RateDecision {
	now := l.now().UTC()
	bucket := now.UnixNano() / int64(l.window)
	resetAt := time.Unix(0, (bucket+1)*int64(l.window)).UTC()

	count, ttl, err := l.incr(ctx, rateLimitPrefix+key+":"+strconv.FormatInt(bucket, 10))
	if err != nil {
		metrics.RateLimitBackendErrorsTotal.Inc()
		l.log.Warn().Err(err).Msg("rate limit store unavailable, using in-memory fallback")
		if l.fallback != nil {
			return l.fallback.Allow(ctx, key)
		}
		return ports.RateDecision{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: resetAt}
	}

	d := ports.RateDecision{
		Allowed:   count <= l.limit,
		Count:     count,
		Limit:     l.limit,
		Remaining: l.limit - count,
		ResetAt:   resetAt,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(now)
		if ttl > 0 && ttl < d.RetryAfter {
			d.RetryAfter = ttl
		}
		if d.RetryAfter <= 0 {
			d.RetryAfter = time.Millisecond
		}
	}
	return d
}

func (l *RateLimiter) incr(ctx context.Context, key string) (int, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, rateLimitTimeout)
	defer cancel()

	res, err := rateLimitScript.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit script: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return 0, 0, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	return int(count), time.Duration(ttlMs) * time.Millisecond, nil
}
