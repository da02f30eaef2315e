// Package errors defines the typed error taxonomy shared by every SDK
// component. Transport converts all failures into an *AppError before
// they leave the component; callers never see raw connection errors.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an error into one of the SDK's four kinds.
// The kind, not the code, decides retry policy: only NETWORK errors
// are ever retried.
type ErrorType string

const (
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypePurchase   ErrorType = "PURCHASE"
	ErrTypeLicense    ErrorType = "LICENSE"
)

// Error codes carried by AppError.Code.
const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidLicense    = "INVALID_LICENSE"
	CodeServerError       = "SERVER_ERROR"
	CodeConnectionRefused = "CONNECTION_REFUSED"
	CodeRateLimited       = "RATE_LIMITED"
	CodeTimeout           = "TIMEOUT"
	CodeDuplicatePurchase = "DUPLICATE_PURCHASE"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInvalidFormat     = "INVALID_FORMAT"
)

// AppError is the single error type produced by the SDK. It carries a
// kind tag, a machine-readable code, the HTTP status that produced it
// (zero when no response was received), and optional context.
type AppError struct {
	Type       ErrorType
	Code       string
	Message    string
	StatusCode int
	Cause      error
	Context    map[string]any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair for logging and diagnostics.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates an AppError of the given kind.
func New(errType ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewNetworkError creates a NETWORK error (retryable by policy).
func NewNetworkError(code, message string, cause error) *AppError {
	return New(ErrTypeNetwork, code, message, cause)
}

// NewValidationError creates a VALIDATION error (never retried).
func NewValidationError(code, message string) *AppError {
	return New(ErrTypeValidation, code, message, nil)
}

// NewPurchaseError creates a PURCHASE error (conflict/duplicate).
func NewPurchaseError(code, message string) *AppError {
	return New(ErrTypePurchase, code, message, nil)
}

// NewLicenseError creates a generic LICENSE error.
func NewLicenseError(code, message string) *AppError {
	return New(ErrTypeLicense, code, message, nil)
}

// WithStatus sets the originating HTTP status code.
func (e *AppError) WithStatus(status int) *AppError {
	e.StatusCode = status
	return e
}

// IsRetryable reports whether err is a NETWORK-kind AppError. All
// other kinds, and non-AppError values, are not retryable here; the
// retry package layers additional low-level connection checks on top
// for errors that never passed through Transport.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrTypeNetwork
	}
	return false
}

// StatusOf extracts the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}

// CodeOf extracts the error code carried by err, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
