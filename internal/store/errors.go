package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a storage error with an HTTP status code.
// Backends return the sentinels below (optionally WithCause/WithMessage) so
// services can translate them without knowing which backend produced them.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)

	base *Error // Sentinel this error was derived from
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a sentinel even after WithCause or WithMessage produced a copy.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.kind() == t.kind()
}

// kind identifies the sentinel an error was derived from.
func (e *Error) kind() *Error {
	if e.base != nil {
		return e.base
	}
	return e
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:    e.Code,
		Message: msg,
		Err:     e.Err,
		base:    e.kind(),
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
		base:    e.kind(),
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid input",
	}

	// ErrInsufficientFunds is returned when a debit would drive a balance below zero.
	ErrInsufficientFunds = &Error{
		Code:    http.StatusPaymentRequired,
		Message: "insufficient points",
	}

	// ErrStockEmpty is returned when a platform has no items left.
	ErrStockEmpty = &Error{
		Code:    http.StatusConflict,
		Message: "stock empty",
	}

	// ErrKeyClaimed is returned when a key's claim transition already happened.
	ErrKeyClaimed = &Error{
		Code:    http.StatusConflict,
		Message: "key already claimed",
	}

	// ErrAlreadyReferred is returned when a referral row already exists for the referred user.
	ErrAlreadyReferred = &Error{
		Code:    http.StatusConflict,
		Message: "referral already recorded",
	}

	// ErrReportTaken is returned when another admin claimed or resolved the report first.
	ErrReportTaken = &Error{
		Code:    http.StatusConflict,
		Message: "report already taken",
	}

	// ErrUnavailable is returned for transient failures (locks, lost connections).
	// It is the only error worth retrying.
	ErrUnavailable = &Error{
		Code:    http.StatusServiceUnavailable,
		Message: "store unavailable",
	}
)
