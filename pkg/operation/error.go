package operation

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies the terminal error of an operation.
type Code int

const (
	Internal Code = iota + 1
	Protocol
	AlreadyDone
	Timeout
	ChildExit
	Spawn
	Version
	InvalidArgument
	BadURI
	NotSupported
	NoMemory
	KeyNotFound
	KeyExists
	KeyIncomplete
	Unreachable
)

func (c Code) String() string {
	switch c {
	case Internal:
		return "internal"
	case Protocol:
		return "protocol"
	case AlreadyDone:
		return "already-done"
	case Timeout:
		return "timeout"
	case ChildExit:
		return "child-exit"
	case Spawn:
		return "spawn"
	case Version:
		return "version"
	case InvalidArgument:
		return "invalid-argument"
	case BadURI:
		return "bad-uri"
	case NotSupported:
		return "not-supported"
	case NoMemory:
		return "no-memory"
	case KeyNotFound:
		return "key-not-found"
	case KeyExists:
		return "key-exists"
	case KeyIncomplete:
		return "key-incomplete"
	case Unreachable:
		return "unreachable"
	default:
		panic(fmt.Sprintf("invalid code: %d", c))
	}
}

// HTTP maps the code onto the status returned by the daemon api.
func (c Code) HTTP() int {
	switch c {
	case InvalidArgument, BadURI:
		return http.StatusBadRequest
	case KeyNotFound:
		return http.StatusNotFound
	case KeyExists, AlreadyDone:
		return http.StatusConflict
	case NotSupported:
		return http.StatusNotImplemented
	case Timeout:
		return http.StatusGatewayTimeout
	case Unreachable, ChildExit, Version, Protocol, KeyIncomplete:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	code Code
	msg  string
	err  error
}

func NewError(code Code, msg string, err error) *Error {
	return &Error{
		code: code,
		msg:  msg,
		err:  err,
	}
}

func Errorf(code Code, format string, args ...any) *Error {
	return &Error{
		code: code,
		msg:  fmt.Sprintf(format, args...),
	}
}

func (e *Error) Code() Code {
	return e.code
}

func (e *Error) Message() string {
	return e.msg
}

func (e *Error) Error() string {
	switch {
	case e.msg != "" && e.err != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.err)
	case e.msg != "":
		return fmt.Sprintf("%s: %s", e.code, e.msg)
	case e.err != nil:
		return fmt.Sprintf("%s: %v", e.code, e.err)
	default:
		return e.code.String()
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.code == e.code
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.code, true
	}
	return 0, false
}
