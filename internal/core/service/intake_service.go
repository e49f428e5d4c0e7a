package service

import (
	"context"
	"errors"

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

// IntakeService applies the cross-record rules that sit in front of the
// generic record services: who a policy can be issued to, and which policy a
// claim or complaint may reference.
type IntakeService struct {
	users      ports.UserRepository
	policies   ports.RecordService[*domain.Policy]
	claims     ports.RecordService[*domain.Claim]
	complaints ports.RecordService[*domain.Complaint]
}

func NewIntakeService(
	users ports.UserRepository,
	policies ports.RecordService[*domain.Policy],
	claims ports.RecordService[*domain.Claim],
	complaints ports.RecordService[*domain.Complaint],
) *IntakeService {
	return &IntakeService{users: users, policies: policies, claims: claims, complaints: complaints}
}

// IssuePolicy creates a policy for an existing client account on behalf of
// the acting staff member.
func (s *IntakeService) IssuePolicy(ctx context.Context, ac *domain.AuthContext, p *domain.Policy) (*domain.Policy, error) {
	owner, err := s.users.FindByID(ctx, p.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner.Role != domain.RoleClient {
		return nil, domain.InvalidInput(domain.ReasonValidation, "policies can only be issued to client accounts")
	}
	if !p.EndDate.IsZero() && !p.EndDate.After(p.StartDate) {
		return nil, domain.InvalidInput(domain.ReasonValidation, "end_date must be after start_date")
	}
	if ac.Role() == domain.RoleAgent {
		p.AgentID = ac.PrincipalID()
	}
	p.Number = ""
	return s.policies.Create(ctx, p)
}

// SubmitClaim files a claim against one of the principal's active policies.
func (s *IntakeService) SubmitClaim(ctx context.Context, ac *domain.AuthContext, c *domain.Claim) (*domain.Claim, error) {
	policy, err := s.ownedPolicy(ctx, ac, c.PolicyID)
	if err != nil {
		return nil, err
	}
	if policy.Status != domain.PolicyActive {
		return nil, domain.InvalidInput(domain.ReasonValidation, "claims can only be filed against an active policy")
	}
	if c.IncidentDate.Before(policy.StartDate) {
		return nil, domain.InvalidInput(domain.ReasonValidation, "incident predates policy coverage")
	}
	if !policy.EndDate.IsZero() && c.IncidentDate.After(policy.EndDate) {
		return nil, domain.InvalidInput(domain.ReasonValidation, "incident is after policy coverage ended")
	}
	c.OwnerID = ac.PrincipalID()
	c.Number = ""
	c.AmountApproved = 0
	return s.claims.Create(ctx, c)
}

// FileComplaint records a complaint, optionally tied to one of the
// principal's policies.
func (s *IntakeService) FileComplaint(ctx context.Context, ac *domain.AuthContext, c *domain.Complaint) (*domain.Complaint, error) {
	if c.PolicyID != "" {
		if _, err := s.ownedPolicy(ctx, ac, c.PolicyID); err != nil {
			return nil, err
		}
	}
	if c.Priority == "" {
		c.Priority = "medium"
	}
	c.OwnerID = ac.PrincipalID()
	c.Number = ""
	c.Resolution = ""
	return s.complaints.Create(ctx, c)
}

// ownedPolicy resolves a referenced policy, reporting a missing one as
// invalid input rather than a missing route resource.
func (s *IntakeService) ownedPolicy(ctx context.Context, ac *domain.AuthContext, id string) (*domain.Policy, error) {
	policy, err := s.policies.Get(ctx, ac, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.InvalidInput(domain.ReasonValidation, "referenced policy does not exist")
		}
		return nil, err
	}
	if policy.OwnerID != ac.PrincipalID() {
		return nil, domain.Forbidden(domain.ReasonNotOwner, "policy belongs to another principal")
	}
	return policy, nil
}
