package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures at the service boundaries so callers can map
// each category to a distinct user-facing message.
type ErrorCode string

const (
	ErrConfigMissing    ErrorCode = "CONFIG_MISSING"
	ErrTransport        ErrorCode = "TRANSPORT"
	ErrTimeout          ErrorCode = "TIMEOUT"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrUpstreamStatus   ErrorCode = "UPSTREAM_STATUS"
	ErrMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"
	ErrInternal         ErrorCode = "INTERNAL"
)

// Error is a structured error with a code and optional HTTP status.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Cause      error     `json:"-"`
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

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// GetErrorCode extracts the error code from an error, unwrapping as needed,
// or "" when no *Error is in the chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
