package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is against any error returned by the
// pipeline packages.
var (
	ErrStorageFailed    = errors.New("image storage failed")
	ErrImageLoadFailed  = errors.New("image load failed")
	ErrRemoteCallFailed = errors.New("remote call failed")
	ErrInvalidJSON      = errors.New("invalid json")
	ErrWriteFailed      = errors.New("write failed")
	ErrNotFound         = errors.New("not found")
)

// Error is a typed pipeline failure. Kind is one of the Err* sentinels above,
// Op names the failing operation and Detail carries diagnostics such as the
// offending locator or model text.
type Error struct {
	Kind   error
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an *Error of the given kind.
func NewError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewErrorf builds an *Error with a formatted detail string.
func NewErrorf(kind error, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the sentinel kind of err, or nil when err carries none.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrStorageFailed, ErrImageLoadFailed, ErrRemoteCallFailed,
		ErrInvalidJSON, ErrWriteFailed, ErrNotFound,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
