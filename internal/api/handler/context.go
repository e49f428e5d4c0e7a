package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/insureportal/portal-api/internal/api/middleware"
	"github.com/insureportal/portal-api/internal/core/domain"
)

// principal returns the authorization context set by the Authenticate
// middleware. Reaching a handler without one means the route was wired
// without the gate, which is reported as unauthenticated.
func principal(c echo.Context) (*domain.AuthContext, error) {
	ac := middleware.AuthContext(c)
	if !ac.Authenticated() {
		return nil, domain.Unauthenticated(domain.ReasonTokenMissing, "authentication required")
	}
	return ac, nil
}
