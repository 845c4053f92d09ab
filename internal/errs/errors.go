// internal/errs/errors.go
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Stable machine-readable codes surfaced verbatim to callers.
const (
	CodeEmptyCart            = "EMPTY_CART"
	CodeListingUnavailable   = "LISTING_UNAVAILABLE"
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeBelowMinQty          = "BELOW_MIN_QTY"
	CodeRuleNotFound         = "RULE_NOT_FOUND"
	CodeNotAllDelivered      = "NOT_ALL_DELIVERED"
	CodeIllegalTransition    = "ILLEGAL_TRANSITION"
	CodeMissingReason        = "MISSING_REASON"
	CodePriorityConflict     = "PRIORITY_CONFLICT"
	CodeConfirmationMismatch = "CONFIRMATION_MISMATCH"
	CodeInvalidAmount        = "INVALID_AMOUNT"
	CodeNotFound             = "NOT_FOUND"
)

// ValidationError rejects malformed input synchronously; never retried.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Validation(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// ConflictError aborts the affected unit of work (one seller group, one
// transition); the caller may re-fetch state and retry.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func Conflict(code, message string) *ConflictError {
	return &ConflictError{Code: code, Message: message}
}

// AuthorizationError: role/permission/ownership check failed. No partial
// state is ever written before this is raised.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

func Unauthorized(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

// ProviderPendingError: an external call returned PENDING. Propagated as a
// retryable 202-style signal with a suggested delay.
type ProviderPendingError struct {
	Provider   string
	Attempt    int
	RetryAfter time.Duration
}

func (e *ProviderPendingError) Error() string {
	return fmt.Sprintf("%s call pending, retry after %s (attempt %d)", e.Provider, e.RetryAfter, e.Attempt)
}

// ProviderFailure: an external call returned a terminal failure. Recorded on
// the affected row and recoverable only via an explicit force action.
type ProviderFailure struct {
	Provider string
	Message  string
}

func (e *ProviderFailure) Error() string {
	return fmt.Sprintf("%s provider failure: %s", e.Provider, e.Message)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsAuthorization(err error) bool {
	var a *AuthorizationError
	return errors.As(err, &a)
}

func AsProviderPending(err error) (*ProviderPendingError, bool) {
	var p *ProviderPendingError
	if errors.As(err, &p) {
		return p, true
	}
	return nil, false
}

func IsProviderFailure(err error) bool {
	var p *ProviderFailure
	return errors.As(err, &p)
}

// CodeOf extracts the machine-readable code, if the error carries one.
func CodeOf(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Code
	}
	var c *ConflictError
	if errors.As(err, &c) {
		return c.Code
	}
	return ""
}
