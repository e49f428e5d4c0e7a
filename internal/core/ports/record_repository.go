package ports

import (
	"context"

	"github.com/insureportal/portal-api/internal/core/domain"
)

// RecordFilter carries the list query for numbered records.
type RecordFilter struct {
	OwnerID string // empty = all owners (staff)
	Status  string
	Page    int // 1-based
	Limit   int
}

// StatusChange is a compare-and-set status update.
type StatusChange struct {
	From      string
	To        string
	ChangedBy string
	Notes     string
}

// RecordRepository defines persistence for one numbered record type.
type RecordRepository[R domain.NumberedRecord] interface {
	// Create inserts rec and fills its ID. A display number collision yields
	// domain.ErrDuplicateNumber.
	Create(ctx context.Context, rec R) error
	FindByID(ctx context.Context, id string) (R, error)
	// LatestNumber returns the display number of the most recently created
	// record, or domain.ErrRecordNotFound when none exists.
	LatestNumber(ctx context.Context) (string, error)
	List(ctx context.Context, filter RecordFilter) ([]R, int64, error)
	// UpdateStatus applies change only if the stored status still equals
	// change.From; otherwise it returns a conflict.
	UpdateStatus(ctx context.Context, id string, change StatusChange) (R, error)
}

// SequenceStore hands out per-key counters atomically.
type SequenceStore interface {
	// Seed raises the counter for key to at least floor. Idempotent.
	Seed(ctx context.Context, key string, floor int64) error
	// Next increments the counter for key and returns the new value.
	Next(ctx context.Context, key string) (int64, error)
}

// LatestNumberSource is the slice of a RecordRepository the allocator uses to
// seed a counter from existing data.
type LatestNumberSource interface {
	LatestNumber(ctx context.Context) (string, error)
}
