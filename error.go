package newsroom

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes understood by the transports
const (
	ErrInvalid      = "invalid"
	ErrUnauthorized = "unauthorized"
	ErrForbidden    = "forbidden"
	ErrNotFound     = "not_found"
	ErrConflict     = "conflict"
	ErrInternal     = "internal"
)

const internalMessage = "An internal error has occurred."

// Error is an application error. Code and Message are safe to show to a
// client; Op and Err are for logs.
type Error struct {
	Code    string
	Message string
	Op      string
	Err     error
}

// Errorf returns a coded error with a formatted message
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError attaches a code and a client message to err
func WrapError(code, op, message string, err error) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the first code found in the chain of err. Errors
// without one are internal.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	for e := asError(err); e != nil; e = asError(e.Err) {
		if e.Code != "" {
			return e.Code
		}
	}

	return ErrInternal
}

// ErrorMessage returns the first client message found in the chain of err
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	for e := asError(err); e != nil; e = asError(e.Err) {
		if e.Message != "" {
			return e.Message
		}
	}

	return internalMessage
}

func asError(err error) *Error {
	var e *Error
	if err == nil || !errors.As(err, &e) {
		return nil
	}
	return e
}

func (e *Error) Error() string {
	var sb strings.Builder

	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}

	switch {
	case e.Err != nil:
		sb.WriteString(e.Err.Error())
	case e.Code != "":
		fmt.Fprintf(&sb, "<%s> %s", e.Code, e.Message)
	default:
		sb.WriteString(e.Message)
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
