package domain

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindNotFound     ErrorKind = "not_found"
	KindPayment      ErrorKind = "payment"
	KindInternal     ErrorKind = "internal"
)

// Error is the tagged domain error. Message is safe to show a caller; Err holds
// the underlying cause (processor error text, driver error) for logs only.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func ForbiddenError(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func UnauthorizedError(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// PaymentError wraps a processor failure or a violated payment-state invariant.
// The wrapped cause never reaches the HTTP response.
func PaymentError(msg string, cause error) *Error {
	return &Error{Kind: KindPayment, Message: msg, Err: cause}
}

func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HTTPStatus maps a domain error to the response code the call site should use.
func HTTPStatus(err error) int {
	if de, ok := AsError(err); ok {
		switch de.Kind {
		case KindValidation, KindPayment:
			return http.StatusBadRequest
		case KindUnauthorized:
			return http.StatusUnauthorized
		case KindForbidden:
			return http.StatusForbidden
		case KindNotFound:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the caller-safe message for err, or a generic fallback
// so internal detail never leaks.
func PublicMessage(err error) string {
	if de, ok := AsError(err); ok && de.Message != "" {
		return de.Message
	}
	return "something went wrong"
}
