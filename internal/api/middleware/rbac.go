package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/insureportal/portal-api/internal/core/domain"
)

// RequireRoles permits the request iff the principal holds one of roles.
// Admin always passes. Runs after Authenticate.
func RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	required := make([]string, 0, len(roles))
	for _, r := range roles {
		required = append(required, string(r))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac := AuthContext(c)
			if !ac.Authenticated() {
				return domain.Unauthenticated(domain.ReasonTokenMissing, "authentication required")
			}
			if !ac.HasRole(roles...) {
				err := domain.Forbidden(domain.ReasonRoleRequired, "insufficient role").
					WithDetail("required_roles", required).
					WithDetail("actual_role", string(ac.Role()))
				recordDecision(err)
				return err
			}
			return next(c)
		}
	}
}

// RequirePermissions checks the principal's effective permissions in the
// given mode. Admin always passes.
func RequirePermissions(mode domain.PermissionMode, perms ...domain.Permission) echo.MiddlewareFunc {
	required := make([]string, 0, len(perms))
	for _, p := range perms {
		required = append(required, string(p))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac := AuthContext(c)
			if !ac.Authenticated() {
				return domain.Unauthenticated(domain.ReasonTokenMissing, "authentication required")
			}
			if !ac.HasPermission(mode, perms...) {
				err := domain.Forbidden(domain.ReasonPermissionMissing, "missing permission").
					WithDetail("required_permissions", required).
					WithDetail("mode", mode.String())
				recordDecision(err)
				return err
			}
			return next(c)
		}
	}
}
