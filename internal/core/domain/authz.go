package domain

// Permission is a fine-grained capability checked by route guards.
type Permission string

const (
	PermPoliciesRead      Permission = "policies:read"
	PermPoliciesWrite     Permission = "policies:write"
	PermClaimsCreate      Permission = "claims:create"
	PermClaimsRead        Permission = "claims:read"
	PermClaimsReview      Permission = "claims:review"
	PermComplaintsCreate  Permission = "complaints:create"
	PermComplaintsRead    Permission = "complaints:read"
	PermComplaintsResolve Permission = "complaints:resolve"
	PermUsersRead         Permission = "users:read"
	PermUsersManage       Permission = "users:manage"
)

// rolePermissions is the baseline grant of each role. Admin is absent on
// purpose: it is handled as an unconditional allowance in AuthContext.
var rolePermissions = map[Role][]Permission{
	RoleClient: {
		PermPoliciesRead,
		PermClaimsCreate, PermClaimsRead,
		PermComplaintsCreate, PermComplaintsRead,
	},
	RoleAgent: {
		PermPoliciesRead, PermPoliciesWrite,
		PermClaimsRead, PermClaimsReview,
		PermComplaintsRead, PermComplaintsResolve,
		PermUsersRead,
	},
}

// PermissionMode selects conjunctive or disjunctive permission checks.
type PermissionMode int

const (
	// AllOf permits only when every listed permission is held.
	AllOf PermissionMode = iota
	// AnyOf permits when at least one listed permission is held.
	AnyOf
)

func (m PermissionMode) String() string {
	if m == AnyOf {
		return "any"
	}
	return "all"
}

// Owned is implemented by anything that references an owning principal.
type Owned interface {
	OwnerRef() string
}

// AuthContext is the per-request authorization state: the resolved principal
// and its effective permission set. A nil *AuthContext means no principal and
// denies every check.
type AuthContext struct {
	Principal   *User
	permissions map[Permission]struct{}
}

// NewAuthContext resolves the effective permissions of u once: the role
// baseline plus the principal's explicit grants.
func NewAuthContext(u *User) *AuthContext {
	perms := make(map[Permission]struct{})
	for _, p := range rolePermissions[u.Role] {
		perms[p] = struct{}{}
	}
	for _, p := range u.Permissions {
		perms[p] = struct{}{}
	}
	return &AuthContext{Principal: u, permissions: perms}
}

func (a *AuthContext) Authenticated() bool {
	return a != nil && a.Principal != nil
}

func (a *AuthContext) PrincipalID() string {
	if !a.Authenticated() {
		return ""
	}
	return a.Principal.ID
}

func (a *AuthContext) Role() Role {
	if !a.Authenticated() {
		return ""
	}
	return a.Principal.Role
}

func (a *AuthContext) IsAdmin() bool {
	return a.Role() == RoleAdmin
}

// HasRole reports whether the principal's role is in roles. Admin always
// passes.
func (a *AuthContext) HasRole(roles ...Role) bool {
	if !a.Authenticated() {
		return false
	}
	if a.IsAdmin() {
		return true
	}
	for _, r := range roles {
		if a.Principal.Role == r {
			return true
		}
	}
	return false
}

// HasPermission evaluates perms in the given mode. Admin always passes.
// An empty list passes in AllOf mode and fails in AnyOf mode.
func (a *AuthContext) HasPermission(mode PermissionMode, perms ...Permission) bool {
	if !a.Authenticated() {
		return false
	}
	if a.IsAdmin() {
		return true
	}
	if mode == AnyOf {
		for _, p := range perms {
			if _, ok := a.permissions[p]; ok {
				return true
			}
		}
		return false
	}
	for _, p := range perms {
		if _, ok := a.permissions[p]; !ok {
			return false
		}
	}
	return true
}

// IsOwnerOf reports whether the principal owns rec or is an admin.
func (a *AuthContext) IsOwnerOf(rec Owned) bool {
	if !a.Authenticated() || rec == nil {
		return false
	}
	return a.IsAdmin() || rec.OwnerRef() == a.Principal.ID
}

// Permissions returns the effective permission set, unordered.
func (a *AuthContext) Permissions() []Permission {
	if !a.Authenticated() {
		return nil
	}
	out := make([]Permission, 0, len(a.permissions))
	for p := range a.permissions {
		out = append(out, p)
	}
	return out
}

var knownPermissions = map[Permission]struct{}{
	PermPoliciesRead: {}, PermPoliciesWrite: {},
	PermClaimsCreate: {}, PermClaimsRead: {}, PermClaimsReview: {},
	PermComplaintsCreate: {}, PermComplaintsRead: {}, PermComplaintsResolve: {},
	PermUsersRead: {}, PermUsersManage: {},
}

// KnownPermission reports whether p is part of the permission vocabulary.
func KnownPermission(p Permission) bool {
	_, ok := knownPermissions[p]
	return ok
}
