package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/insureportal/portal-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// kindStatus maps error kinds to HTTP status codes.
var kindStatus = []struct {
	kind   error
	status int
}{
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrRateLimited, http.StatusTooManyRequests},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrInvalidInput, http.StatusUnprocessableEntity},
	{domain.ErrAllocationFailure, http.StatusInternalServerError},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps structured domain errors to their HTTP status and reason code.
//   - Sets Retry-After on RATE_LIMITED responses.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "...", "code": "...", "details": {...}}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: statusCode(he.Code)}
	}

	if de, ok := domain.AsError(err); ok {
		status := http.StatusInternalServerError
		for _, ks := range kindStatus {
			if errors.Is(de.Kind, ks.kind) {
				status = ks.status
				break
			}
		}
		if de.Reason == domain.ReasonValidation {
			status = http.StatusBadRequest
		}
		if status == http.StatusTooManyRequests {
			c.Response().Header().Set("Retry-After", retryAfterSeconds(de))
		}
		if status >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("reason", string(de.Reason)).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("request failed")
		}
		return status, errorResponse{Error: de.Message, Code: string(de.Reason), Details: de.Details}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "INTERNAL"}
}

// retryAfterSeconds rounds up so clients never retry early; the header is
// at least 1.
func retryAfterSeconds(de *domain.Error) string {
	secs := int(math.Ceil(de.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// statusCode turns an HTTP status into a reason-style code, e.g.
// 404 -> NOT_FOUND.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "HTTP_" + strconv.Itoa(status)
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
