package server

import (
	"errors"
	"fmt"
)

type ErrorCode uint

const (
	ErrUnknown ErrorCode = iota
	ErrBadParamInput
	ErrNotFound
	ErrInternalServerError
)

// Error carries an ErrorCode so handlers can map service failures onto http
// status codes without sniffing error strings.
type Error struct {
	orig error
	msg  string
	code ErrorCode
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

func (e *Error) Code() ErrorCode {
	return e.code
}

func WrapErrorf(orig error, code ErrorCode, format string, a ...interface{}) error {
	return &Error{
		orig: orig,
		code: code,
		msg:  fmt.Sprintf(format, a...),
	}
}

func NewErrorf(code ErrorCode, format string, a ...interface{}) error {
	return WrapErrorf(nil, code, format, a...)
}

// CodeOf extracts the ErrorCode of err, or ErrUnknown for plain errors.
func CodeOf(err error) ErrorCode {
	var serverErr *Error
	if errors.As(err, &serverErr) {
		return serverErr.Code()
	}
	return ErrUnknown
}
