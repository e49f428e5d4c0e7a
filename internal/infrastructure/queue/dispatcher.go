package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/insureportal/portal-api/internal/api/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 2 * time.Second
)

// ActivityStore is the single write the dispatcher performs.
type ActivityStore interface {
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

type touch struct {
	userID string
	at     time.Time
}

// ActivityDispatcher records "last active" timestamps off the request path.
// Updates are sharded by user id so writes for one principal stay ordered.
// A full shard drops the update instead of slowing the request.
type ActivityDispatcher struct {
	workers []chan touch
	store   ActivityStore
	log     zerolog.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewActivityDispatcher creates a dispatcher with numWorkers shards.
// If numWorkers <= 0, defaultWorkers is used.
func NewActivityDispatcher(numWorkers int, store ActivityStore, log zerolog.Logger) *ActivityDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &ActivityDispatcher{
		workers: make([]chan touch, numWorkers),
		store:   store,
		log:     log,
		now:     time.Now,
	}
	for i := range d.workers {
		d.workers[i] = make(chan touch, channelBuffer)
	}
	return d
}

// Start launches the workers. They drain what is queued and exit once ctx
// is cancelled; Wait blocks until they have.
func (d *ActivityDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has exited.
func (d *ActivityDispatcher) Wait() {
	d.wg.Wait()
}

// Record queues a last-active update for userID. It never blocks.
func (d *ActivityDispatcher) Record(userID string) {
	if userID == "" {
		return
	}
	idx := d.shardIndex(userID)
	select {
	case d.workers[idx] <- touch{userID: userID, at: d.now().UTC()}:
		metrics.ActivityQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.ActivityDroppedTotal.Inc()
		d.log.Debug().Str("user_id", userID).Int("worker_id", idx).Msg("activity queue full, update dropped")
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *ActivityDispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *ActivityDispatcher) runWorker(ctx context.Context, id int, ch <-chan touch) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			metrics.ActivityQueueDepth.WithLabelValues(label).Set(0)
			return
		case t := <-ch:
			metrics.ActivityQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.write(context.Background(), id, t)
		}
	}
}

// drain flushes updates queued before shutdown.
func (d *ActivityDispatcher) drain(id int, ch <-chan touch) {
	for {
		select {
		case t := <-ch:
			d.write(context.Background(), id, t)
		default:
			return
		}
	}
}

func (d *ActivityDispatcher) write(ctx context.Context, id int, t touch) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := d.store.TouchLastActive(ctx, t.userID, t.at); err != nil {
		d.log.Warn().Err(err).
			Str("user_id", t.userID).
			Int("worker_id", id).
			Msg("last-active update failed")
	}
}
