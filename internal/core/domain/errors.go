package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Every *Error unwraps to exactly one of these, so callers can
// branch with errors.Is without caring about the reason code.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("access forbidden")
	ErrRateLimited       = errors.New("rate limited")
	ErrNotFound          = errors.New("not found")
	ErrAllocationFailure = errors.New("display number allocation failed")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
)

var (
	ErrUserNotFound       = NotFound(ReasonUserNotFound, "user not found")
	ErrUserExists         = &Error{Kind: ErrConflict, Reason: ReasonUserExists, Message: "user already exists"}
	ErrInvalidCredentials = Unauthenticated(ReasonInvalidCredentials, "invalid credentials")
	ErrRecordNotFound     = NotFound(ReasonResourceNotFound, "record not found")
	// ErrDuplicateNumber is returned by record stores when the display number
	// unique index rejects an insert.
	ErrDuplicateNumber = &Error{Kind: ErrConflict, Reason: ReasonDuplicateNumber, Message: "display number already taken"}
)

// Reason is a stable, machine-readable code returned to clients next to the
// human-readable message.
type Reason string

const (
	ReasonTokenMissing       Reason = "TOKEN_MISSING"
	ReasonTokenExpired       Reason = "TOKEN_EXPIRED"
	ReasonTokenNotYetValid   Reason = "TOKEN_NOT_YET_VALID"
	ReasonTokenInvalid       Reason = "TOKEN_INVALID"
	ReasonPrincipalNotFound  Reason = "PRINCIPAL_NOT_FOUND"
	ReasonInvalidCredentials Reason = "INVALID_CREDENTIALS"

	ReasonAccountInactive   Reason = "ACCOUNT_INACTIVE"
	ReasonAccountSuspended  Reason = "ACCOUNT_SUSPENDED"
	ReasonRoleRequired      Reason = "ROLE_REQUIRED"
	ReasonPermissionMissing Reason = "PERMISSION_REQUIRED"
	ReasonNotOwner          Reason = "NOT_OWNER"

	ReasonRateLimited Reason = "RATE_LIMITED"

	ReasonResourceNotFound Reason = "RESOURCE_NOT_FOUND"
	ReasonUserNotFound     Reason = "USER_NOT_FOUND"

	ReasonAllocationFailed Reason = "ALLOCATION_FAILURE"
	ReasonMalformedNumber  Reason = "MALFORMED_DISPLAY_NUMBER"

	ReasonUserExists        Reason = "USER_EXISTS"
	ReasonDuplicateNumber   Reason = "DUPLICATE_DISPLAY_NUMBER"
	ReasonInvalidTransition Reason = "INVALID_STATUS_TRANSITION"
	ReasonStaleStatus       Reason = "STALE_STATUS"
	ReasonValidation        Reason = "VALIDATION_FAILED"
)

// Error is the structured failure shared by the gate, the allocator and the
// record services.
type Error struct {
	Kind       error
	Reason     Reason
	Message    string
	Details    map[string]any
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Is matches another *Error with the same kind and reason, which keeps the
// package-level sentinels such as ErrUserNotFound usable with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Reason == e.Reason
}

// WithDetail returns a copy of e with key set in Details.
func (e *Error) WithDetail(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func Unauthenticated(reason Reason, msg string) *Error {
	return &Error{Kind: ErrUnauthenticated, Reason: reason, Message: msg}
}

func Forbidden(reason Reason, msg string) *Error {
	return &Error{Kind: ErrForbidden, Reason: reason, Message: msg}
}

func NotFound(reason Reason, msg string) *Error {
	return &Error{Kind: ErrNotFound, Reason: reason, Message: msg}
}

func RateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       ErrRateLimited,
		Reason:     ReasonRateLimited,
		Message:    "too many requests",
		RetryAfter: retryAfter,
	}
}

func AllocationFailure(reason Reason, msg string, cause error) *Error {
	return &Error{Kind: ErrAllocationFailure, Reason: reason, Message: msg, Err: cause}
}

func InvalidInput(reason Reason, msg string) *Error {
	return &Error{Kind: ErrInvalidInput, Reason: reason, Message: msg}
}

// AsError extracts the structured error from err, if any.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
