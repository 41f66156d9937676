// Package apperror defines the tagged error kinds used across the service.
// Each error carries an HTTP status and a user-safe message; the underlying
// cause is kept for server-side logging and never reaches a client.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindUpstream       Kind = "upstream"
	KindInfrastructure Kind = "infrastructure"
)

type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Fields carries field-level validation detail, when applicable.
	Fields map[string]string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error for server-side logging.
func (e *Error) WithCause(err error) *Error {
	clone := *e
	clone.cause = err
	return &clone
}

func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Status: http.StatusUnauthorized, Message: message}
}

func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Status: http.StatusForbidden, Message: message}
}

func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: message, Fields: fields}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

func Upstream(status int, message string) *Error {
	return &Error{Kind: KindUpstream, Status: status, Message: message}
}

func Infrastructure(err error) *Error {
	return &Error{
		Kind:    KindInfrastructure,
		Status:  http.StatusInternalServerError,
		Message: "service unavailable",
		cause:   err,
	}
}

// From extracts an *Error from err, or wraps err as Infrastructure when it
// carries no kind.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Infrastructure(err)
}
