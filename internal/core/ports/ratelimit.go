package ports

import (
	"context"
	"time"
)

// RateDecision is the outcome of a single rate limit check.
type RateDecision struct {
	Allowed    bool
	Count      int
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RateLimiter counts requests per key within a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) RateDecision
}
