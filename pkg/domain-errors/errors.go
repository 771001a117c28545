// Package domainerrors provides code-tagged domain errors.
//
// Services return these so transports can translate consistently: the
// code drives the HTTP status, the message becomes the description for
// client-facing codes. Infrastructure layers return pkg/platform/sentinel
// errors instead; services translate at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks rejected input values (below minimum, empty
	// batch, malformed fields).
	CodeValidation Code = "validation_failed"

	// CodeInvalidInput marks structurally invalid identifiers, such as
	// the null placeholder identity where a real one is required.
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest marks malformed requests at the transport edge.
	CodeBadRequest Code = "bad_request"

	// CodeUnauthorized marks missing or invalid caller credentials.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks callers that are authenticated but lack the
	// role an operation requires.
	CodeForbidden Code = "forbidden"

	// CodeNotFound marks entities that do not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict marks membership or precondition violations: already
	// an owner, nothing to claim, refund not approved.
	CodeConflict Code = "conflict"

	// CodeInvariantViolation marks operations attempted outside their
	// required window, stage, or pause condition.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeExhausted marks insufficient supply or balance.
	CodeExhausted Code = "exhausted"

	// CodeInternal marks unexpected failures. The message is never
	// shown to clients.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a classification code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// HasCode reports whether err carries the given code anywhere in its
// chain.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is reports whether err is a domain error at all.
func Is(err error) bool {
	var de *Error
	return errors.As(err, &de)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// untagged errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
