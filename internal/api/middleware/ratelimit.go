package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

// RateLimit counts requests per principal, or per client IP before
// authentication has run, and rejects once the window ceiling is passed.
func RateLimit(limiter ports.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if ac := AuthContext(c); ac.Authenticated() {
				key = "user:" + ac.PrincipalID()
			}

			d := limiter.Allow(c.Request().Context(), key)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.ResetAt.IsZero() {
				h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			}

			if !d.Allowed {
				err := domain.RateLimited(d.RetryAfter)
				recordDecision(err)
				return err
			}
			return next(c)
		}
	}
}
