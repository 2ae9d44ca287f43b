// Package errors provides coded domain errors for the points ledger.
//
// Usage:
//
//	// In services - return typed errors
//	if platform == nil {
//	    return errors.PlatformNotFoundf("no platform named %q", name)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrStockEmpty) {
//	    // tell the user the platform is out of stock
//	}
//
//	// Or switch on the Code
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeInsufficientFunds:
//	    case errors.CodeStoreUnavailable:
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Ledger error codes.
const (
	CodeKeyNotFound       Code = "KEY_NOT_FOUND"
	CodeKeyAlreadyClaimed Code = "KEY_ALREADY_CLAIMED"
	CodePlatformNotFound  Code = "PLATFORM_NOT_FOUND"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeStockEmpty        Code = "STOCK_EMPTY"
	CodeAlreadyReferred   Code = "ALREADY_REFERRED"
	CodeStoreUnavailable  Code = "STORE_UNAVAILABLE"
)

// General error codes.
const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeValidation    Code = "VALIDATION"
	CodeConflict      Code = "CONFLICT"
	CodeInternal      Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeKeyNotFound, CodePlatformNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeKeyAlreadyClaimed, CodeStockEmpty, CodeAlreadyReferred:
		return http.StatusConflict
	case CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrKeyNotFound       = &Error{Code: CodeKeyNotFound, Message: "key not found"}
	ErrKeyAlreadyClaimed = &Error{Code: CodeKeyAlreadyClaimed, Message: "key already claimed"}
	ErrPlatformNotFound  = &Error{Code: CodePlatformNotFound, Message: "platform not found"}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds, Message: "insufficient points"}
	ErrStockEmpty        = &Error{Code: CodeStockEmpty, Message: "out of stock"}
	ErrAlreadyReferred   = &Error{Code: CodeAlreadyReferred, Message: "referral already credited"}
	ErrStoreUnavailable  = &Error{Code: CodeStoreUnavailable, Message: "store unavailable"}

	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized  = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden     = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation    = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict      = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal      = &Error{Code: CodeInternal, Message: "internal error"}
)

// retryAfterSeconds is the delay suggested to clients of a busy store.
const retryAfterSeconds = "1"

// IsRetryable reports whether the whole command may be retried.
// Only a transiently unavailable store qualifies; every other error is terminal.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// GetHeaders returns the response headers for this error. Retryable errors
// carry a Retry-After hint.
func (e *Error) GetHeaders() http.Header {
	h := http.Header{}
	if IsRetryable(e) {
		h.Set("Retry-After", retryAfterSeconds)
	}
	return h
}

// Constructor functions for creating errors with custom messages.

// KeyNotFound creates a key not found error.
func KeyNotFound(msg string) *Error {
	return &Error{Code: CodeKeyNotFound, Message: msg}
}

// PlatformNotFoundf creates a platform not found error with formatted message.
func PlatformNotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodePlatformNotFound, Message: fmt.Sprintf(format, args...)}
}

// StoreUnavailable wraps a transient storage failure.
func StoreUnavailable(err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: "the ledger is busy, please try again", cause: err}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Forbiddenf creates a forbidden error with formatted message.
func Forbiddenf(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}
