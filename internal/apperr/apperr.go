package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	Unauthenticated     Kind = "unauthenticated"
	Forbidden           Kind = "forbidden"
	NotFound            Kind = "not_found"
	Conflict            Kind = "conflict"
	LimitReached        Kind = "limit_reached"
	CollaboratorFailure Kind = "collaborator_failure"
	Unexpected          Kind = "unexpected"
)

type Error struct {
	Kind    Kind
	Code    string
	Details string
}

func (e *Error) Error() string {
	return e.Code
}

func New(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func WithDetails(kind Kind, code, details string) *Error {
	return &Error{Kind: kind, Code: code, Details: details}
}

// KindOf classifies any error; non-apperr errors count as Unexpected.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unexpected
}

func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "server_error"
}

func DetailsOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return ""
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict, LimitReached:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
