// Package acperr implements the ACP error taxonomy from spec.md §7:
// invalid_input, not_found, and server_error, each with a fixed HTTP status
// mapping applied by transport/httpapi.
package acperr

import (
	"errors"
	"fmt"
)

// Code is one of the three wire error codes.
type Code string

const (
	// InvalidInput covers malformed request bodies, unknown agents,
	// mismatched await-resume kinds, and cancelling a terminal run.
	InvalidInput Code = "invalid_input"
	// NotFound covers unknown run, session, or resource ids.
	NotFound Code = "not_found"
	// ServerError covers uncaught agent or infrastructure failures.
	ServerError Code = "server_error"
)

// Error is the structured error propagated through the executor and
// translated to the wire body {code, message} by transport/httpapi.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New constructs an *Error with the given code and message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error with the given code that also carries the
// original cause for errors.Unwrap/logging. A nil cause yields nil.
func Wrap(code Code, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: cause.Error(), cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Code) + ": " + e.Message
}

// Unwrap exposes the original cause, if any, for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) *Error { return New(NotFound, format, args...) }

// InvalidInputf builds an InvalidInput error.
func InvalidInputf(format string, args ...any) *Error { return New(InvalidInput, format, args...) }

// ServerErrorf builds a ServerError error.
func ServerErrorf(format string, args ...any) *Error { return New(ServerError, format, args...) }

// Classify converts an arbitrary error into an *Error, preserving the code
// if err already is one, and defaulting to ServerError otherwise — the
// policy spec.md §7 requires for uncaught agent/infrastructure exceptions.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(ServerError, err)
}

// StatusCode returns the HTTP status for code, per spec.md §6's mapping.
func (c Code) StatusCode() int {
	switch c {
	case NotFound:
		return 404
	case InvalidInput:
		return 422
	case ServerError:
		return 500
	default:
		return 500
	}
}
