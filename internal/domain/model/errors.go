package model

import (
	"errors"
	"fmt"
)

// Sentinel kinds shared by every layer. Callers classify failures with
// errors.Is against these values.
var (
	ErrDuplicate = errors.New("duplicate")
	ErrNotFound  = errors.New("not found")
	ErrMalformed = errors.New("malformed")
	// ErrUnmatched marks a roster mismatch. It is informational and never
	// fails an operation on its own.
	ErrUnmatched = errors.New("unmatched players")
)

// Error carries the operation that failed, the kind it was classified as
// and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind classifies err as kind. A nil err yields nil.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Detail returns the cause of the outermost classified error, or the error
// text itself when err was never classified.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Err == nil {
			return e.Kind.Error()
		}
		return Detail(e.Err)
	}
	return err.Error()
}
