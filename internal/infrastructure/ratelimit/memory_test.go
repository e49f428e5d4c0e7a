package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int, window time.Duration, maxKeys int) (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	l := NewMemory(limit, window, maxKeys)
	l.now = clock.now
	return l, clock
}

func TestMemoryLimiter_CeilingThenRetryAfterThenNextWindow(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute, 100)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d := l.Allow(ctx, "u1")
		require.True(t, d.Allowed, "request %d should pass", i)
		assert.Equal(t, 3-i, d.Remaining)
	}

	clock.advance(20 * time.Second)
	d := l.Allow(ctx, "u1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 40*time.Second, d.RetryAfter)

	clock.advance(d.RetryAfter)
	d = l.Allow(ctx, "u1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute, 100)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "u1").Allowed)
	assert.False(t, l.Allow(ctx, "u1").Allowed)
	assert.True(t, l.Allow(ctx, "u2").Allowed)
}

func TestMemoryLimiter_PrunesExpiredBucketsPastThreshold(t *testing.T) {
	l, clock := newTestLimiter(5, time.Minute, 10)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		l.Allow(ctx, fmt.Sprintf("u%d", i))
	}
	assert.Equal(t, 11, l.Len())

	clock.advance(time.Minute)
	l.Allow(ctx, "fresh")
	assert.Equal(t, 1, l.Len())
}

func TestMemoryLimiter_DoesNotPruneBelowThreshold(t *testing.T) {
	l, clock := newTestLimiter(5, time.Minute, 10)
	ctx := context.Background()

	l.Allow(ctx, "u1")
	clock.advance(time.Minute)
	l.Allow(ctx, "u1")
	assert.Equal(t, 2, l.Len())
}

func TestNewMemory_Defaults(t *testing.T) {
	l := NewMemory(0, 0, 0)
	assert.Equal(t, 1, l.limit)
	assert.Equal(t, time.Minute, l.window)
	assert.Equal(t, defaultMaxKeys, l.maxKeys)
}
