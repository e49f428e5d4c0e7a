// Package ratelimit holds the process-local request limiter.
//
// Counts live in this process only, so each server instance enforces its own
// ceiling. Deployments running more than one instance should use the Redis
// limiter in infrastructure/db/redis instead.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/insureportal/portal-api/internal/core/ports"
)

const (
	defaultWindow  = time.Minute
	defaultMaxKeys = 10000
)

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter counts requests per key in fixed windows aligned to the
// epoch. Each (key, window bucket) pair gets its own counter.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	maxKeys int
	items   map[string]entry
	now     func() time.Time
}

// NewMemory builds a limiter allowing limit requests per window. Expired
// counters are pruned once more than maxKeys are held.
func NewMemory(limit int, window time.Duration, maxKeys int) *MemoryLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = defaultWindow
	}
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		maxKeys: maxKeys,
		items:   make(map[string]entry),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) ports.RateDecision {
	now := l.now().UTC()
	bucket := now.UnixNano() / int64(l.window)
	resetAt := time.Unix(0, (bucket+1)*int64(l.window)).UTC()
	bucketKey := key + ":" + strconv.FormatInt(bucket, 10)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) > l.maxKeys {
		l.prune(now)
	}
	curr, ok := l.items[bucketKey]
	if !ok {
		curr = entry{resetAt: resetAt}
	}
	curr.count++
	l.items[bucketKey] = curr

	return decide(curr.count, l.limit, curr.resetAt, now)
}

// Len reports how many counters are held.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *MemoryLimiter) prune(now time.Time) {
	for k, v := range l.items {
		if !now.Before(v.resetAt) {
			delete(l.items, k)
		}
	}
}

func decide(count, limit int, resetAt, now time.Time) ports.RateDecision {
	d := ports.RateDecision{
		Allowed:   count <= limit,
		Count:     count,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(now)
		if d.RetryAfter <= 0 {
			d.RetryAfter = time.Millisecond
		}
	}
	return d
}
