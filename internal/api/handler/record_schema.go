package handler

import (
	"time"

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

type createPolicyRequest struct {
	OwnerID        string    `json:"owner_id"        validate:"required"`
	ProductType    string    `json:"product_type"    validate:"required,max=60"`
	CoverageAmount float64   `json:"coverage_amount" validate:"gt=0"`
	Premium        float64   `json:"premium"         validate:"gte=0"`
	Currency       string    `json:"currency"        validate:"omitempty,len=3"`
	StartDate      time.Time `json:"start_date"      validate:"required"`
	EndDate        time.Time `json:"end_date"`
}

func (r createPolicyRequest) toDomain() *domain.Policy {
	return &domain.Policy{
		RecordMeta:     domain.RecordMeta{OwnerID: r.OwnerID},
		ProductType:    r.ProductType,
		CoverageAmount: r.CoverageAmount,
		Premium:        r.Premium,
		Currency:       r.Currency,
		StartDate:      r.StartDate.UTC(),
		EndDate:        r.EndDate.UTC(),
	}
}

type submitClaimRequest struct {
	PolicyID      string    `json:"policy_id"      validate:"required"`
	IncidentDate  time.Time `json:"incident_date"  validate:"required"`
	Description   string    `json:"description"    validate:"required,max=2000"`
	AmountClaimed float64   `json:"amount_claimed" validate:"gt=0"`
	Documents     []string  `json:"documents"      validate:"max=20,dive,required"`
}

func (r submitClaimRequest) toDomain() *domain.Claim {
	return &domain.Claim{
		PolicyID:      r.PolicyID,
		IncidentDate:  r.IncidentDate.UTC(),
		Description:   r.Description,
		AmountClaimed: r.AmountClaimed,
		Documents:     r.Documents,
	}
}

type fileComplaintRequest struct {
	Category    string `json:"category"    validate:"required,max=60"`
	Subject     string `json:"subject"     validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Priority    string `json:"priority"    validate:"omitempty,oneof=low medium high urgent"`
	PolicyID    string `json:"policy_id"`
}

func (r fileComplaintRequest) toDomain() *domain.Complaint {
	return &domain.Complaint{
		Category:    r.Category,
		Subject:     r.Subject,
		Description: r.Description,
		Priority:    r.Priority,
		PolicyID:    r.PolicyID,
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"  validate:"max=1000"`
}

type listQuery struct {
	Status string `query:"status"`
	Page   int    `query:"page"  validate:"gte=0"`
	Limit  int    `query:"limit" validate:"gte=0,max=100"`
}

type listResponse[R domain.NumberedRecord] struct {
	Items      []R   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func toListResponse[R domain.NumberedRecord](res *ports.ListResult[R]) listResponse[R] {
	items := res.Items
	if items == nil {
		items = []R{}
	}
	return listResponse[R]{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	}
}
