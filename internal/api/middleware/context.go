package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/insureportal/portal-api/internal/core/domain"
)

const (
	authContextKey = "auth_context"
	resourceKey    = "resource"
)

// SetAuthContext stores the resolved authorization context on c.
func SetAuthContext(c echo.Context, ac *domain.AuthContext) {
	c.Set(authContextKey, ac)
}

// AuthContext returns the authorization context for the request, or nil when
// the request carried no valid credential. The nil context answers false to
// every predicate.
func AuthContext(c echo.Context) *domain.AuthContext {
	ac, _ := c.Get(authContextKey).(*domain.AuthContext)
	return ac
}

// Resource returns the record loaded by RequireOwnership.
func Resource[R any](c echo.Context) (R, bool) {
	rec, ok := c.Get(resourceKey).(R)
	return rec, ok
}
