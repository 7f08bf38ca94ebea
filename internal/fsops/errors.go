package fsops

import (
	"errors"
	"fmt"
)

// Kind classifies a failed filesystem operation.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalid
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalid:
		return "invalid input"
	case KindIO:
		return "i/o failure"
	default:
		return "unknown"
	}
}

// Error is returned by every Ops method.
type Error struct {
	Kind Kind
	Op   string
	Path string // relative to root
	Msg  string // user-facing message
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %s: %v", e.Op, e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s %q: %s", e.Op, e.Path, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the text shown to the user: Msg, or the underlying error for I/O
// failures without one.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// KindOf returns the Kind carried by err, KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message()
	}
	return err.Error()
}

func invalid(op, path, msg string) *Error {
	return &Error{Kind: KindInvalid, Op: op, Path: path, Msg: msg}
}

func notFound(op, path string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Path: path, Msg: "path not found", Err: err}
}

func ioFailure(op, path string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}
