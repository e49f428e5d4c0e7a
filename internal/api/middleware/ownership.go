package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/insureportal/portal-api/internal/core/domain"
)

// LoadFunc fetches the record named by a route parameter.
type LoadFunc[R domain.Owned] func(ctx context.Context, id string) (R, error)

// RequireOwnership loads the record named by param and permits the request
// iff the principal owns it, is an admin, or holds one of staff. A missing
// record fails with NOT_FOUND before ownership is looked at. The loaded
// record is available to the handler through Resource.
func RequireOwnership[R domain.Owned](load LoadFunc[R], param string, staff ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac := AuthContext(c)
			if !ac.Authenticated() {
				return domain.Unauthenticated(domain.ReasonTokenMissing, "authentication required")
			}

			rec, err := load(c.Request().Context(), c.Param(param))
			if err != nil {
				return err
			}
			if !ac.IsOwnerOf(rec) && !(len(staff) > 0 && ac.HasRole(staff...)) {
				err := domain.Forbidden(domain.ReasonNotOwner, "resource belongs to another principal")
				recordDecision(err)
				return err
			}

			c.Set(resourceKey, rec)
			return next(c)
		}
	}
}
