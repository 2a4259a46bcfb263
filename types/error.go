package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Construction and configuration error codes. These are the only errors
// allowed to surface from constructors; per-request failures resolve to a
// ResultEnvelope instead.
const (
	ErrConfigInvalid     ErrorCode = "CONFIG_INVALID"
	ErrMissingCredential ErrorCode = "MISSING_CREDENTIAL"
	ErrBackendNotSet     ErrorCode = "BACKEND_NOT_SET"
	ErrUnknownVendor     ErrorCode = "UNKNOWN_VENDOR"
	ErrSchemaInvalid     ErrorCode = "SCHEMA_INVALID"
)

// Processing error codes, used internally between pipeline stages.
const (
	ErrParseFailure      ErrorCode = "PARSE_FAILURE"
	ErrValidationFailure ErrorCode = "VALIDATION_FAILURE"
	ErrTokenizerError    ErrorCode = "TOKENIZER_ERROR"
	ErrTrailSink         ErrorCode = "TRAIL_SINK"
	ErrMaxRetries        ErrorCode = "MAX_RETRIES_REACHED"
	ErrQuotaFatal        ErrorCode = "QUOTA_EXHAUSTED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable. Wrapped errors are
// unwrapped first.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error. Wrapped errors are
// unwrapped first.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
