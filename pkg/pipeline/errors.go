package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input shapes: pose arity, matrix dimensions, resolution arity.
	ErrValidation = errors.New("invalid pipeline input")
	// ErrResource marks a failure to persist the serialized document.
	ErrResource = errors.New("cannot persist pipeline document")
	// ErrEncoding marks a document that could not be serialized.
	ErrEncoding = errors.New("cannot encode pipeline document")
	// ErrFinalized is returned by Add* calls made after Finalize and before Reset.
	ErrFinalized = errors.New("pipeline already finalized")
)

// Error carries the failing operation alongside the error kind.
// Err, when set, is the underlying cause (for example an *fs.PathError).
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invalidf(op, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func resourceError(op, path string, err error) error {
	return &Error{Kind: ErrResource, Op: op, Msg: path, Err: err}
}
