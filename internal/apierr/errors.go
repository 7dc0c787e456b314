// Package apierr is the error taxonomy from the gateway's error-handling
// design: a small set of sentinel kinds, each mapped to a stable HTTP status
// code. Grounded on the teacher's fmt.Errorf("...: %w", err) wrapping idiom,
// extended to carry an HTTP status since the teacher has no HTTP surface of
// its own.
package apierr

import (
	"errors"
	"net/http"
)

// Kind names one of the error categories the gateway can return.
type Kind string

const (
	KindAuthenticationFailed Kind = "AuthenticationFailed"
	KindAuthorizationFailed  Kind = "AuthorizationFailed"
	KindValidationFailed     Kind = "ValidationFailed"
	KindDuplicateSubmission  Kind = "DuplicateSubmission"
	KindNotFound             Kind = "NotFound"
	KindInternal             Kind = "InternalError"
)

var statusByKind = map[Kind]int{
	KindAuthenticationFailed: http.StatusUnauthorized,
	KindAuthorizationFailed:  http.StatusForbidden,
	KindValidationFailed:     http.StatusUnprocessableEntity,
	KindDuplicateSubmission:  http.StatusConflict,
	KindNotFound:             http.StatusNotFound,
	KindInternal:             http.StatusInternalServerError,
}

// Error is a gateway error carrying its HTTP status and a user-facing
// message. Risk rejections and execution failures are never represented as
// an Error crossing the HTTP boundary — those are business outcomes
// recorded as events and returned as ordinary response bodies.
type Error struct {
	Kind    Kind
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return e.Message + ": " + e.Wrapped.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Status returns the HTTP status code for e's kind.
func (e *Error) Status() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind wrapping err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Wrapped: err}
}

// As extracts an *Error from err, following the standard library idiom.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// StatusFor returns the HTTP status for err, defaulting to 500 for errors
// that are not *Error.
func StatusFor(err error) int {
	if e, ok := As(err); ok {
		return e.Status()
	}
	return http.StatusInternalServerError
}
