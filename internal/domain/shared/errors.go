package shared

import (
	"errors"
	"fmt"
)

// DomainError is a business failure with a stable code. The HTTP layer maps
// the code to a status; the message is safe to show to the caller.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string { return e.Message }

// Is compares by code, so a sentinel matches any error carrying its code
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	return errors.As(target, &t) && t.Code == e.Code
}

// NewDomainError creates a domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorf creates a domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Sentinels shared by every module. Module specific codes live with their
// aggregates.
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified concurrently, reload and retry")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Authentication required")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrCreditLimitExceeded = NewDomainError("CREDIT_LIMIT_EXCEEDED", "Credit limit exceeded")
	ErrExceedsOutstanding  = NewDomainError("EXCEEDS_OUTSTANDING", "Payment exceeds outstanding amount")
	ErrServiceUnavailable  = NewDomainError("SERVICE_UNAVAILABLE", "Service is not available")
	ErrUpstream            = NewDomainError("UPSTREAM_ERROR", "Upstream service request failed")
)

// IsNotFound reports whether err carries the NOT_FOUND code
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
