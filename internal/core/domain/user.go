package domain

import (
	"strings"
	"time"
)

// Role is the coarse principal class. The set is closed; see ParseRole.
type Role string

const (
	RoleClient Role = "client"
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
)

// roleAliases maps vocabulary used by older clients onto the closed set.
var roleAliases = map[string]Role{
	"client":       RoleClient,
	"policyholder": RoleClient,
	"agent":        RoleAgent,
	"admin":        RoleAdmin,
}

// ParseRole normalises s into a Role. ok is false for unknown roles.
func ParseRole(s string) (Role, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// User models an authenticated actor in the system.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	NationalID   string       `json:"national_id,omitempty"`
	FullName     string       `json:"full_name,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	PasswordHash string       `json:"-"`
	Role         Role         `json:"role"`
	Permissions  []Permission `json:"permissions,omitempty"`
	IsActive     bool         `json:"is_active"`
	IsSuspended  bool         `json:"is_suspended"`
	IsVerified   bool         `json:"is_verified"`
	LastLogin    time.Time    `json:"last_login,omitempty"`
	LastActive   time.Time    `json:"last_active,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CheckStanding returns a FORBIDDEN error when the account is barred from
// using otherwise valid credentials.
func (u *User) CheckStanding() error {
	if u.IsSuspended {
		return Forbidden(ReasonAccountSuspended, "account is suspended")
	}
	if !u.IsActive {
		return Forbidden(ReasonAccountInactive, "account is inactive")
	}
	return nil
}

// ProfileUpdate lists the self-service fields a principal may change.
// Nil pointers are left untouched.
type ProfileUpdate struct {
	FullName *string
	Phone    *string
	Email    *string
}

// AccountStatus is the admin-controlled standing of an account.
type AccountStatus struct {
	IsActive    bool
	IsSuspended bool
	IsVerified  bool
}
