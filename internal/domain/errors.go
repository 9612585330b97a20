package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure. Each kind maps to exactly one wire code.
type Kind int

const (
	KindServerError Kind = iota
	KindInvalidRequest
	KindNotFound
	KindGone
	KindForbidden
	KindInvalidVote
	KindNoRoute
	KindUnauthorized
	KindInvalidToken
	KindNoFile
	KindUploadFailed
	KindSearchFailed
)

var kindCodes = map[Kind]string{
	KindServerError:    "SERVER_ERROR",
	KindInvalidRequest: "INVALID_REQUEST",
	KindNotFound:       "NOT_FOUND",
	KindGone:           "EXPIRED",
	KindForbidden:      "FORBIDDEN",
	KindInvalidVote:    "INVALID_VOTE",
	KindNoRoute:        "NO_ROUTE",
	KindUnauthorized:   "UNAUTHORIZED",
	KindInvalidToken:   "INVALID_TOKEN",
	KindNoFile:         "NO_FILE",
	KindUploadFailed:   "UPLOAD_FAILED",
	KindSearchFailed:   "SEARCH_FAILED",
}

var kindStatuses = map[Kind]int{
	KindServerError:    http.StatusInternalServerError,
	KindInvalidRequest: http.StatusBadRequest,
	KindNotFound:       http.StatusNotFound,
	KindGone:           http.StatusGone,
	KindForbidden:      http.StatusForbidden,
	KindInvalidVote:    http.StatusBadRequest,
	KindNoRoute:        http.StatusNotFound,
	KindUnauthorized:   http.StatusUnauthorized,
	KindInvalidToken:   http.StatusUnauthorized,
	KindNoFile:         http.StatusBadRequest,
	KindUploadFailed:   http.StatusBadRequest,
	KindSearchFailed:   http.StatusInternalServerError,
}

// Code returns the wire error code, e.g. "NOT_FOUND".
func (k Kind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return kindCodes[KindServerError]
}

// Status returns the HTTP status associated with the kind.
func (k Kind) Status() int {
	if s, ok := kindStatuses[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is a kinded domain failure. Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error without an underlying cause.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds an *Error around cause.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the kind from err. Errors that are not domain errors are server errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindServerError
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
