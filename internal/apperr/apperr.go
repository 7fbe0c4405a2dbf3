// Package apperr defines the error kinds shared by the catalog services and
// their translation to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCorruptCredential  = errors.New("corrupt credential")
)

// Error attaches a client-facing detail to one of the kinds above.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind with a detail message.
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Response is the JSON body written for failed requests.
type Response struct {
	Detail string `json:"detail"`
}

const internalDetail = "internal error"

// Status maps err to an HTTP status and a detail that is safe to show the
// caller. Unknown errors become 500 with a generic detail.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, "Incorrect email or password"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "Not enough permission"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, detailOr(err, "Resource already exists")
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, detailOr(err, "Resource does not exist")
	case errors.Is(err, ErrInvalidInput):
		return http.StatusUnprocessableEntity, detailOr(err, "Invalid request")
	default:
		return http.StatusInternalServerError, internalDetail
	}
}

func detailOr(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	return fallback
}
