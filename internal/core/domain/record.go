package domain

import "time"

// RecordType identifies a kind of numbered record. It also names the
// collection and the counter the record draws its display number from.
type RecordType string

const (
	RecordPolicy    RecordType = "policy"
	RecordClaim     RecordType = "claim"
	RecordComplaint RecordType = "complaint"
)

// NumberedRecord is any record that receives a display number on first
// persistence.
type NumberedRecord interface {
	Owned
	RecordType() RecordType
	Meta() *RecordMeta
	CanTransitionTo(next string) bool
}

// StatusHistoryEntry records a single status change on a record.
type StatusHistoryEntry struct {
	Status    string    `json:"status" bson:"status"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	ChangedBy string    `json:"changed_by,omitempty" bson:"changed_by,omitempty"`
	Notes     string    `json:"notes,omitempty" bson:"notes,omitempty"`
}

// RecordMeta holds the fields every numbered record shares.
type RecordMeta struct {
	ID            string               `json:"id" bson:"_id,omitempty"`
	Number        string               `json:"number" bson:"number"`
	OwnerID       string               `json:"owner_id" bson:"owner_id"`
	Status        string               `json:"status" bson:"status"`
	StatusHistory []StatusHistoryEntry `json:"status_history" bson:"status_history"`
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at" bson:"updated_at"`
}

func (m *RecordMeta) Meta() *RecordMeta { return m }

func (m *RecordMeta) OwnerRef() string { return m.OwnerID }

// transitions is a status state machine: from -> allowed next statuses.
type transitions map[string][]string

func (t transitions) allows(from, to string) bool {
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (t transitions) known(s string) bool {
	if _, ok := t[s]; ok {
		return true
	}
	for _, next := range t {
		for _, n := range next {
			if n == s {
				return true
			}
		}
	}
	return false
}

// ── Policy ────────────────────────────────────────────────────────────────────

const (
	PolicyPending   = "pending"
	PolicyActive    = "active"
	PolicyLapsed    = "lapsed"
	PolicyExpired   = "expired"
	PolicyCancelled = "cancelled"
)

var policyTransitions = transitions{
	PolicyPending: {PolicyActive, PolicyCancelled},
	PolicyActive:  {PolicyLapsed, PolicyExpired, PolicyCancelled},
	PolicyLapsed:  {PolicyActive, PolicyCancelled},
}

// Policy is an insurance contract held by a client.
type Policy struct {
	RecordMeta     `bson:",inline"`
	ProductType    string    `json:"product_type" bson:"product_type"`
	CoverageAmount float64   `json:"coverage_amount" bson:"coverage_amount"`
	Premium        float64   `json:"premium" bson:"premium"`
	Currency       string    `json:"currency" bson:"currency"`
	StartDate      time.Time `json:"start_date" bson:"start_date"`
	EndDate        time.Time `json:"end_date" bson:"end_date"`
	AgentID        string    `json:"agent_id,omitempty" bson:"agent_id,omitempty"`
}

func (*Policy) RecordType() RecordType { return RecordPolicy }

func (p *Policy) CanTransitionTo(next string) bool {
	return policyTransitions.allows(p.Status, next)
}

// ── Claim ─────────────────────────────────────────────────────────────────────

const (
	ClaimSubmitted   = "submitted"
	ClaimUnderReview = "under_review"
	ClaimApproved    = "approved"
	ClaimRejected    = "rejected"
	ClaimPaid        = "paid"
)

var claimTransitions = transitions{
	ClaimSubmitted:   {ClaimUnderReview, ClaimRejected},
	ClaimUnderReview: {ClaimApproved, ClaimRejected},
	ClaimApproved:    {ClaimPaid},
}

// Claim is a request for payment under a policy.
type Claim struct {
	RecordMeta     `bson:",inline"`
	PolicyID       string    `json:"policy_id" bson:"policy_id"`
	IncidentDate   time.Time `json:"incident_date" bson:"incident_date"`
	Description    string    `json:"description" bson:"description"`
	AmountClaimed  float64   `json:"amount_claimed" bson:"amount_claimed"`
	AmountApproved float64   `json:"amount_approved,omitempty" bson:"amount_approved,omitempty"`
	Documents      []string  `json:"documents,omitempty" bson:"documents,omitempty"`
}

func (*Claim) RecordType() RecordType { return RecordClaim }

func (c *Claim) CanTransitionTo(next string) bool {
	return claimTransitions.allows(c.Status, next)
}

// ── Complaint ─────────────────────────────────────────────────────────────────

const (
	ComplaintOpen       = "open"
	ComplaintInProgress = "in_progress"
	ComplaintResolved   = "resolved"
	ComplaintClosed     = "closed"
)

var complaintTransitions = transitions{
	ComplaintOpen:       {ComplaintInProgress, ComplaintClosed},
	ComplaintInProgress: {ComplaintResolved, ComplaintClosed},
	ComplaintResolved:   {ComplaintClosed, ComplaintOpen},
}

// Complaint is a customer grievance tracked until closure.
type Complaint struct {
	RecordMeta  `bson:",inline"`
	Category    string `json:"category" bson:"category"`
	Subject     string `json:"subject" bson:"subject"`
	Description string `json:"description" bson:"description"`
	Priority    string `json:"priority" bson:"priority"`
	PolicyID    string `json:"policy_id,omitempty" bson:"policy_id,omitempty"`
	Resolution  string `json:"resolution,omitempty" bson:"resolution,omitempty"`
}

func (*Complaint) RecordType() RecordType { return RecordComplaint }

func (c *Complaint) CanTransitionTo(next string) bool {
	return complaintTransitions.allows(c.Status, next)
}

// KnownStatus reports whether status belongs to the state machine of t.
func KnownStatus(t RecordType, status string) bool {
	switch t {
	case RecordPolicy:
		return policyTransitions.known(status)
	case RecordClaim:
		return claimTransitions.known(status)
	case RecordComplaint:
		return complaintTransitions.known(status)
	}
	return false
}

// InitialStatus is the status a freshly created record of type t starts in.
func InitialStatus(t RecordType) string {
	switch t {
	case RecordPolicy:
		return PolicyPending
	case RecordClaim:
		return ClaimSubmitted
	case RecordComplaint:
		return ComplaintOpen
	}
	return ""
}
