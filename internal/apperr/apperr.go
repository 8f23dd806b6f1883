// Package apperr is the error taxonomy shared by the client: a short message
// fit for an end user, plus a wrapped cause kept for diagnostics.
package apperr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindAuth          Kind = iota + 1 // bad credentials, missing or expired token
	KindRemote                        // transport failure or non-2xx from the API
	KindAuthorization                 // role/ownership/eligibility, caught locally
	KindScheduling                    // lead time or eligibility, caught locally
	KindValidation                    // malformed input, caught locally
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRemote:
		return "remote"
	case KindAuthorization:
		return "authorization"
	case KindScheduling:
		return "scheduling"
	case KindValidation:
		return "validation"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status when the error came from a response
	Err     error
}

// Error returns only the user-facing message.
func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind, so errors.Is(err, apperr.ErrAuth) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Diagnostic includes the cause chain for logs.
func (e *Error) Diagnostic() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Status != 0 {
		s += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

var (
	ErrAuth          = &Error{Kind: KindAuth}
	ErrRemote        = &Error{Kind: KindRemote}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrScheduling    = &Error{Kind: KindScheduling}
	ErrValidation    = &Error{Kind: KindValidation}
)

func Auth(msg string, cause error) *Error {
	return &Error{Kind: KindAuth, Message: msg, Err: cause}
}

func Remote(msg string, status int, cause error) *Error {
	return &Error{Kind: KindRemote, Message: msg, Status: status, Err: cause}
}

func Authorization(msg string, cause error) *Error {
	return &Error{Kind: KindAuthorization, Message: msg, Err: cause}
}

func Scheduling(msg string) *Error {
	return &Error{Kind: KindScheduling, Message: msg}
}

func Validation(cause error) *Error {
	return &Error{Kind: KindValidation, Message: cause.Error(), Err: cause}
}

// Message resolves any error to the single short line shown to a user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "something went wrong"
}

// Diagnostic resolves any error to its most detailed form.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Diagnostic()
	}
	return err.Error()
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
