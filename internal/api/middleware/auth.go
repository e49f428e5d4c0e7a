package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/insureportal/portal-api/internal/api/metrics"
	"github.com/insureportal/portal-api/internal/core/domain"
)

// Authenticator resolves a bearer token into an authorization context.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.AuthContext, error)
}

// Authenticate rejects the request unless it carries a valid token for a
// principal in good standing. The token is read from the Authorization
// header first, then from the session cookie.
func Authenticate(auth Authenticator, cookieName string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := extractToken(c, cookieName)
			if err == nil {
				var ac *domain.AuthContext
				ac, err = auth.Authenticate(c.Request().Context(), token)
				if err == nil {
					recordDecision(nil)
					SetAuthContext(c, ac)
					return next(c)
				}
			}

			recordDecision(err)
			logFailure(log, c, err)
			return err
		}
	}
}

// OptionalAuth resolves the principal when a valid token is present and
// otherwise lets the request through anonymously. Handlers branch on
// AuthContext(c).Authenticated().
func OptionalAuth(auth Authenticator, cookieName string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := extractToken(c, cookieName)
			if err != nil || token == "" {
				return next(c)
			}
			ac, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				log.Debug().Err(err).Str("path", c.Path()).Msg("optional authentication ignored")
				return next(c)
			}
			SetAuthContext(c, ac)
			return next(c)
		}
	}
}

// extractToken returns "" when no credential is present. A malformed
// Authorization header is an invalid token, not a missing one.
func extractToken(c echo.Context, cookieName string) (string, error) {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			return "", domain.Unauthenticated(domain.ReasonTokenInvalid, "malformed authorization header")
		}
		return token, nil
	}
	if cookieName != "" {
		if cookie, err := c.Cookie(cookieName); err == nil {
			return cookie.Value, nil
		}
	}
	return "", nil
}

func logFailure(log zerolog.Logger, c echo.Context, err error) {
	var event *zerolog.Event
	if de, ok := domain.AsError(err); ok {
		event = log.Warn().Str("reason", string(de.Reason))
	} else {
		event = log.Error().Err(err)
	}
	event.
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("ip", c.RealIP()).
		Msg("authentication failed")
}

// recordDecision counts a gate outcome by kind and reason.
func recordDecision(err error) {
	if err == nil {
		metrics.AuthDecisionsTotal.WithLabelValues("authorized", "").Inc()
		return
	}
	outcome := "error"
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		outcome = "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		outcome = "forbidden"
	case errors.Is(err, domain.ErrRateLimited):
		outcome = "rate_limited"
	case errors.Is(err, domain.ErrNotFound):
		outcome = "not_found"
	}
	reason := ""
	if de, ok := domain.AsError(err); ok {
		reason = string(de.Reason)
	}
	metrics.AuthDecisionsTotal.WithLabelValues(outcome, reason).Inc()
}
