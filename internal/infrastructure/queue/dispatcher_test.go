package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	touched map[string][]time.Time
	block   chan struct{}
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{touched: make(map[string][]time.Time)}
}

func (s *fakeStore) TouchLastActive(_ context.Context, id string, at time.Time) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[id] = append(s.touched[id], at)
	return s.err
}

func (s *fakeStore) count(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.touched[id])
}

func TestActivityDispatcher_WritesRecordedActivity(t *testing.T) {
	store := newFakeStore()
	d := NewActivityDispatcher(2, store, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Record("u1")
	d.Record("u1")
	d.Record("u2")
	d.Record("")

	require.Eventually(t, func() bool {
		return store.count("u1") == 2 && store.count("u2") == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	d.Wait()
	assert.Equal(t, 0, store.count(""))
}

func TestActivityDispatcher_DrainsOnShutdown(t *testing.T) {
	store := newFakeStore()
	d := NewActivityDispatcher(1, store, zerolog.Nop())

	// Queue before the workers run so shutdown has something to drain.
	for i := 0; i < 10; i++ {
		d.Record("u1")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()

	assert.Equal(t, 10, store.count("u1"))
}

func TestActivityDispatcher_DropsWhenFull(t *testing.T) {
	store := newFakeStore()
	store.block = make(chan struct{})
	d := NewActivityDispatcher(1, store, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer*3; i++ {
			d.Record("u1")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(store.block)
	cancel()
	d.Wait()
	assert.Less(t, store.count("u1"), channelBuffer*3)
}

func TestActivityDispatcher_StoreErrorsAreNotFatal(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection reset")
	d := NewActivityDispatcher(1, store, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Record("u1")
	d.Record("u1")
	require.Eventually(t, func() bool { return store.count("u1") == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	d.Wait()
}

func TestActivityDispatcher_ShardingIsStable(t *testing.T) {
	d := NewActivityDispatcher(8, newFakeStore(), zerolog.Nop())
	for _, id := range []string{"a", "u1", "65f0c0ffee"} {
		first := d.shardIndex(id)
		assert.GreaterOrEqual(t, first, 0)
		assert.Less(t, first, 8)
		assert.Equal(t, first, d.shardIndex(id))
	}
}
