// Package apperr classifies failures into the kinds the HTTP layer and
// the service care about. Every error that crosses a package boundary is
// either one of the sentinel kinds below or wraps one via Wrap.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Compare with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("dependency unavailable")
	ErrPersistence = errors.New("persistence failed")
	ErrInternal    = errors.New("internal error")
)

// Error ties an operation name and a kind to an optional underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New returns an error of the given kind with no further cause.
func New(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap annotates err with op and kind. A nil err yields nil.
func Wrap(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Validation is shorthand for a validation failure with a readable reason.
func Validation(op, reason string) error {
	return &Error{Op: op, Kind: ErrValidation, Err: errors.New(reason)}
}

// KindOf reports the sentinel kind carried by err, ErrInternal when err
// carries none, and nil for a nil err.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrUnavailable, ErrPersistence} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// Reason returns the human-facing part of err: the cause for typed errors,
// or the full message otherwise.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Kind.Error()
	}
	return err.Error()
}
