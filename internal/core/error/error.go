package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// Code classifies an error into the service-wide taxonomy.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeInvalidArgument  Code = "invalid_argument"
	CodeUnknownOperation Code = "unknown_operation"
	CodeUpstreamFailure  Code = "upstream_failure"
	CodeConfiguration    Code = "configuration_error"
	CodeInternal         Code = "internal"
)

// Error wraps an underlying error with a taxonomy code, an HTTP status and a
// safe user-facing message.
type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the provided information.
func New(err error, code Code, status int, message string) *Error {
	return &Error{
		Code:    code,
		Status:  status,
		Message: message,
		Err:     err,
	}
}

// NotFound reports a missing resource (session, product, line item).
func NotFound(format string, args ...any) *Error {
	return New(nil, CodeNotFound, http.StatusNotFound, fmt.Sprintf(format, args...))
}

// InvalidArgument reports a request the caller could fix (unknown discount
// code, empty cart, missing checkout session).
func InvalidArgument(format string, args ...any) *Error {
	return New(nil, CodeInvalidArgument, http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// UnknownOperation reports an unrecognised tool name.
func UnknownOperation(name string) *Error {
	return New(nil, CodeUnknownOperation, http.StatusBadRequest, fmt.Sprintf("unknown function: %s", name))
}

// Upstream wraps a model-call transport, auth or rate-limit failure.
func Upstream(err error) *Error {
	return New(err, CodeUpstreamFailure, http.StatusBadGateway, "model call failed")
}

// Configuration reports missing credentials or an unavailable client.
func Configuration(message string) *Error {
	return New(nil, CodeConfiguration, http.StatusServiceUnavailable, message)
}

// CodeOf extracts the taxonomy code from an error chain, falling back to
// CodeInternal for plain errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// StatusOf extracts the HTTP status from an error chain.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether the target matches the underlying error or the Error itself.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to Error or the wrapped error in a chain.
func (e *Error) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**Error); ok {
		*t = e
		return true
	}
	return false
}
