// Package domainerrors defines the coded error type shared by services and transports.
//
// Services return *Error values so callers can branch on the failure kind without
// string matching. Transports translate codes into protocol status (see ToHTTPStatus).
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for callers.
type Code string

const (
	// CodeValidation marks malformed or out-of-range input. Not retried.
	CodeValidation Code = "validation_error"
	// CodeNotFound marks a referenced driver or record that does not exist.
	CodeNotFound Code = "not_found"
	// CodeIntegration marks a failed vendor/ELD call. May be transient.
	CodeIntegration Code = "integration_error"
	// CodeMessageFormat marks a malformed bus message. Always dropped.
	CodeMessageFormat Code = "message_format_error"

	CodeBadRequest Code = "bad_request"
	CodeConflict   Code = "conflict"
	CodeTimeout    Code = "timeout"
	CodeInternal   Code = "internal_error"
)

// Error is a domain error carrying a Code, a caller-facing message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost *Error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// IsRetryable reports whether the failure may succeed on retry.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeIntegration, CodeTimeout:
		return true
	default:
		return false
	}
}

// ToHTTPStatus maps a code to the HTTP status used by the query transport.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeBadRequest, CodeMessageFormat:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeIntegration:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
