package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/insureportal/portal-api/internal/api/metrics"
	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

// Allocator assigns display numbers. Counters live in a SequenceStore whose
// Next is a single atomic increment-and-fetch, so concurrent creations never
// share a number. Each counter is seeded once per process from the latest
// stored record so existing data keeps its sequence.
type Allocator struct {
	seq     ports.SequenceStore
	formats map[domain.RecordType]domain.NumberFormat
	seeded  sync.Map // counter key -> struct{}
	logger  zerolog.Logger
	now     func() time.Time
}

func NewAllocator(seq ports.SequenceStore, formats map[domain.RecordType]domain.NumberFormat, logger zerolog.Logger) (*Allocator, error) {
	keys := make(map[string]domain.RecordType, len(formats))
	for t, f := range formats {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("allocator: %s: %w", t, err)
		}
		if other, dup := keys[f.CounterKey()]; dup {
			return nil, fmt.Errorf("allocator: %s and %s share prefix %q", other, t, f.Prefix)
		}
		keys[f.CounterKey()] = t
	}
	return &Allocator{
		seq:     seq,
		formats: formats,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Assign sets rec's display number unless it already has one. Any failure
// leaves the number empty and is reported as ALLOCATION_FAILURE.
func (a *Allocator) Assign(ctx context.Context, rec domain.NumberedRecord, latest ports.LatestNumberSource) error {
	meta := rec.Meta()
	if meta.Number != "" {
		return nil
	}

	rt := rec.RecordType()
	start := time.Now()
	defer func() {
		metrics.AllocationDuration.WithLabelValues(string(rt)).Observe(time.Since(start).Seconds())
	}()

	format, ok := a.formats[rt]
	if !ok {
		return a.fail(rt, domain.AllocationFailure(domain.ReasonAllocationFailed,
			fmt.Sprintf("no number format configured for %s", rt), nil))
	}

	if err := a.ensureSeeded(ctx, format, latest); err != nil {
		return a.fail(rt, err)
	}

	n, err := a.seq.Next(ctx, format.CounterKey())
	if err != nil {
		return a.fail(rt, domain.AllocationFailure(domain.ReasonAllocationFailed,
			"could not advance "+format.Prefix+" counter", err))
	}

	meta.Number = format.Format(n, a.now().Year())
	metrics.NumbersAllocatedTotal.WithLabelValues(string(rt)).Inc()
	a.logger.Debug().Str("record_type", string(rt)).Str("number", meta.Number).Msg("display number allocated")
	return nil
}

// Reseed forgets that t's counter was seeded, so the next Assign re-reads the
// latest stored number first. Used after a uniqueness conflict shows the
// counter is behind the data.
func (a *Allocator) Reseed(t domain.RecordType) {
	if f, ok := a.formats[t]; ok {
		a.seeded.Delete(f.CounterKey())
	}
}

func (a *Allocator) ensureSeeded(ctx context.Context, format domain.NumberFormat, latest ports.LatestNumberSource) error {
	key := format.CounterKey()
	if _, ok := a.seeded.Load(key); ok {
		return nil
	}

	var floor int64
	number, err := latest.LatestNumber(ctx)
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		floor = 0
	case err != nil:
		return domain.AllocationFailure(domain.ReasonAllocationFailed,
			"could not read latest "+format.Prefix+" number", err)
	default:
		// A malformed latest number must not silently restart the sequence.
		if floor, err = format.Parse(number); err != nil {
			return err
		}
	}

	if err := a.seq.Seed(ctx, key, floor); err != nil {
		return domain.AllocationFailure(domain.ReasonAllocationFailed,
			"could not seed "+format.Prefix+" counter", err)
	}
	a.seeded.Store(key, struct{}{})
	a.logger.Info().Str("counter", key).Int64("floor", floor).Msg("counter seeded")
	return nil
}

func (a *Allocator) fail(rt domain.RecordType, err error) error {
	reason := string(domain.ReasonAllocationFailed)
	if de, ok := domain.AsError(err); ok {
		reason = string(de.Reason)
	}
	metrics.AllocationFailuresTotal.WithLabelValues(string(rt), reason).Inc()
	a.logger.Error().Err(err).Str("record_type", string(rt)).Msg("display number allocation failed")
	return err
}
