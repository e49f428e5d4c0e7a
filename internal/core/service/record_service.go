package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/insureportal/portal-api/internal/api/metrics"
	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

const (
	defaultPageLimit      = 20
	maxPageLimit          = 100
	maxAllocationAttempts = 3
)

// RecordService implements the use cases shared by policies, claims and
// complaints.
type RecordService[R domain.NumberedRecord] struct {
	repo      ports.RecordRepository[R]
	allocator *Allocator
	staff     []domain.Role
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRecordService builds a service for one record type. staff lists the
// roles that may see every record rather than only their own; admin is
// always included.
func NewRecordService[R domain.NumberedRecord](repo ports.RecordRepository[R], allocator *Allocator, logger zerolog.Logger, staff ...domain.Role) *RecordService[R] {
	return &RecordService[R]{
		repo:      repo,
		allocator: allocator,
		staff:     staff,
		logger:    logger,
		now:       time.Now,
	}
}

// Create persists rec, allocating its display number first. If the insert
// trips the number's unique index the counter is reseeded and allocation
// retried a bounded number of times before the create is aborted.
func (s *RecordService[R]) Create(ctx context.Context, rec R) (R, error) {
	var zero R
	meta := rec.Meta()
	rt := rec.RecordType()

	now := s.now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
	if meta.Status == "" {
		meta.Status = domain.InitialStatus(rt)
	}
	if len(meta.StatusHistory) == 0 {
		meta.StatusHistory = []domain.StatusHistoryEntry{{Status: meta.Status, Timestamp: now, ChangedBy: meta.OwnerID}}
	}

	preassigned := meta.Number != ""
	for attempt := 1; ; attempt++ {
		if err := s.allocator.Assign(ctx, rec, s.repo); err != nil {
			return zero, err
		}

		err := s.repo.Create(ctx, rec)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateNumber) {
			s.logger.Error().Err(err).Str("record_type", string(rt)).Msg("failed to create record")
			return zero, fmt.Errorf("create %s: %w", rt, err)
		}
		if preassigned {
			return zero, err
		}
		if attempt >= maxAllocationAttempts {
			metrics.AllocationFailuresTotal.WithLabelValues(string(rt), string(domain.ReasonDuplicateNumber)).Inc()
			return zero, domain.AllocationFailure(domain.ReasonAllocationFailed,
				fmt.Sprintf("could not allocate a unique %s number after %d attempts", rt, attempt), err)
		}

		s.logger.Warn().
			Str("record_type", string(rt)).
			Str("number", meta.Number).
			Int("attempt", attempt).
			Msg("display number collision, reseeding counter")
		meta.Number = ""
		s.allocator.Reseed(rt)
	}

	metrics.RecordsCreatedTotal.WithLabelValues(string(rt)).Inc()
	s.logger.Info().
		Str("record_type", string(rt)).
		Str("number", meta.Number).
		Str("owner_id", meta.OwnerID).
		Msg("record created")
	return rec, nil
}

// Get returns the record if it exists and ac may see it. Existence is
// checked before ownership.
func (s *RecordService[R]) Get(ctx context.Context, ac *domain.AuthContext, id string) (R, error) {
	var zero R
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if !s.canSee(ac, rec) {
		return zero, domain.Forbidden(domain.ReasonNotOwner, "record belongs to another principal")
	}
	return rec, nil
}

func (s *RecordService[R]) Load(ctx context.Context, id string) (R, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns a page of records. Principals outside the staff roles only
// ever see their own records, whatever OwnerID the caller passed.
func (s *RecordService[R]) List(ctx context.Context, ac *domain.AuthContext, filter ports.RecordFilter) (*ports.ListResult[R], error) {
	if !ac.HasRole(s.staff...) {
		filter.OwnerID = ac.PrincipalID()
	}
	if filter.Status != "" {
		var probe R
		if !domain.KnownStatus(probe.RecordType(), filter.Status) {
			return nil, domain.InvalidInput(domain.ReasonValidation, "unknown status "+filter.Status)
		}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &ports.ListResult[R]{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateStatus moves the record along its state machine. The write is a
// compare-and-set on the status read here, so a concurrent change surfaces
// as a conflict instead of being overwritten.
func (s *RecordService[R]) UpdateStatus(ctx context.Context, ac *domain.AuthContext, id, status, notes string) (R, error) {
	var zero R
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if !domain.KnownStatus(rec.RecordType(), status) {
		return zero, domain.InvalidInput(domain.ReasonValidation, "unknown status "+status)
	}
	from := rec.Meta().Status
	if !rec.CanTransitionTo(status) {
		return zero, domain.InvalidInput(domain.ReasonInvalidTransition,
			fmt.Sprintf("cannot move %s from %s to %s", rec.RecordType(), from, status))
	}

	updated, err := s.repo.UpdateStatus(ctx, id, ports.StatusChange{
		From:      from,
		To:        status,
		ChangedBy: ac.PrincipalID(),
		Notes:     notes,
	})
	if err != nil {
		return zero, err
	}

	s.logger.Info().
		Str("record_type", string(rec.RecordType())).
		Str("number", rec.Meta().Number).
		Str("from", from).
		Str("to", status).
		Str("changed_by", ac.PrincipalID()).
		Msg("record status changed")
	return updated, nil
}

func (s *RecordService[R]) canSee(ac *domain.AuthContext, rec R) bool {
	return ac.IsOwnerOf(rec) || (len(s.staff) > 0 && ac.HasRole(s.staff...))
}
