package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a broker failure. Every error that leaves the exchange
// pipeline carries exactly one Kind so the caller can tell bad credentials
// from misconfiguration from an upstream outage, without learning more than
// the classification itself.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindUpstream       Kind = "upstream"
	KindConfig         Kind = "config"
)

// Error is a classified broker error.
type Error struct {
	Kind Kind

	// Message is the caller-visible description. It must not contain
	// secrets or upstream response detail.
	Message string

	// Err is the wrapped cause, kept for logs only.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errf creates a classified error with a formatted caller-visible message.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The message is what callers see;
// the cause stays attached for logging.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind carried by err, or "" if err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Public returns the caller-visible message for err. Unclassified errors get
// a generic message so internal detail never reaches the response body.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps a classified error to a transport-level status code.
// A deadline hit during an upstream call is reported as a gateway timeout.
func HTTPStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
