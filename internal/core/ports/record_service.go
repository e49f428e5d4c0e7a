package ports

import (
	"context"

	"github.com/insureportal/portal-api/internal/core/domain"
)

// ListResult is a page of records.
type ListResult[R domain.NumberedRecord] struct {
	Items      []R
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// RecordService defines use-case operations common to numbered records.
type RecordService[R domain.NumberedRecord] interface {
	Create(ctx context.Context, rec R) (R, error)
	// Get loads a record for the acting principal: NOT_FOUND first, then
	// ownership.
	Get(ctx context.Context, ac *domain.AuthContext, id string) (R, error)
	// Load fetches a record with no ownership check.
	Load(ctx context.Context, id string) (R, error)
	List(ctx context.Context, ac *domain.AuthContext, filter RecordFilter) (*ListResult[R], error)
	UpdateStatus(ctx context.Context, ac *domain.AuthContext, id, status, notes string) (R, error)
}

// IntakeService creates records after checking the rules that span record
// types and accounts.
type IntakeService interface {
	IssuePolicy(ctx context.Context, ac *domain.AuthContext, p *domain.Policy) (*domain.Policy, error)
	SubmitClaim(ctx context.Context, ac *domain.AuthContext, c *domain.Claim) (*domain.Claim, error)
	FileComplaint(ctx context.Context, ac *domain.AuthContext, c *domain.Complaint) (*domain.Complaint, error)
}
