// Package apperrors defines the structured error surface of the service.
// Every error that crosses the API boundary carries one Kind; anything that is
// not an *AppError is reported as Internal.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for clients.
type Kind string

const (
	Unauthenticated Kind = "UNAUTHENTICATED"
	Forbidden       Kind = "FORBIDDEN"
	NotFound        Kind = "NOT_FOUND"
	InvalidRequest  Kind = "INVALID_REQUEST"
	Internal        Kind = "INTERNAL"
)

// AppError is the application error type.
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError of the same Kind, so callers can write
// errors.Is(err, apperrors.ErrNotFound).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// New creates an error of the given kind.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap attaches a kind and a client-facing message to an underlying error.
func Wrap(err error, kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated = &AppError{Kind: Unauthenticated}
	ErrForbidden       = &AppError{Kind: Forbidden}
	ErrNotFound        = &AppError{Kind: NotFound}
	ErrInvalidRequest  = &AppError{Kind: InvalidRequest}
	ErrInternal        = &AppError{Kind: Internal}
)

func NewUnauthenticated(message string) *AppError { return New(Unauthenticated, message) }
func NewForbidden(message string) *AppError       { return New(Forbidden, message) }
func NewNotFound(message string) *AppError        { return New(NotFound, message) }
func NewInvalidRequest(message string) *AppError  { return New(InvalidRequest, message) }

// AsAppError extracts the *AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the Kind of err. Errors without one are Internal.
func KindOf(err error) Kind {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind
	}
	return Internal
}

// HTTPStatus maps a Kind onto an HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Public converts err into the value safe to send to a client. Internal
// errors lose their message and cause.
func Public(err error) *AppError {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Kind == Internal {
		return New(Internal, "internal server error")
	}
	return New(appErr.Kind, appErr.Message)
}
