// Package gatewayerr defines the error kinds shared across the gateway's
// components, mirroring the classification scheme the driver layer already
// uses for connection errors (see driver.IsLikelyConnectionError) but lifted
// to the whole process so REST/OPC UA adapters can map errors to status
// codes without inspecting error strings.
package gatewayerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories named by the external interface
// contract.
type Kind int

const (
	Internal Kind = iota
	NotFound
	AlreadyExists
	InvalidArgument
	Unavailable
	Timeout
	TypeMismatch
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case InvalidArgument:
		return "InvalidArgument"
	case Unavailable:
		return "Unavailable"
	case Timeout:
		return "Timeout"
	case TypeMismatch:
		return "TypeMismatch"
	default:
		return "Internal"
	}
}

// Error wraps an underlying cause with a Kind so callers can classify it
// with errors.As without parsing messages.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) *Error      { return newf(NotFound, format, args...) }
func AlreadyExistsf(format string, args ...interface{}) *Error { return newf(AlreadyExists, format, args...) }
func InvalidArgumentf(format string, args ...interface{}) *Error {
	return newf(InvalidArgument, format, args...)
}
func Unavailablef(format string, args ...interface{}) *Error { return newf(Unavailable, format, args...) }
func Timeoutf(format string, args ...interface{}) *Error     { return newf(Timeout, format, args...) }
func TypeMismatchf(format string, args ...interface{}) *Error {
	return newf(TypeMismatch, format, args...)
}
func Internalf(format string, args ...interface{}) *Error { return newf(Internal, format, args...) }

// Wrap attaches a Kind to an existing error without losing it for errors.Is/As.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}

// KindOf returns the Kind carried by err, or Internal if err isn't a *Error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return Internal
}
