// Package errors defines the failure taxonomy shared by every ledger engine.
//
// Engines return *Error values that carry one of five kinds together with the
// operation that failed. The value unwraps to both the kind sentinel and the
// engine-specific sentinel, so callers can match either with errors.Is.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindStateConflict
	KindNotAuthorized
	KindBoundsViolation
	KindInsufficientFunds
)

var (
	ErrInvalidInput      = stderrors.New("invalid input")
	ErrStateConflict     = stderrors.New("state conflict")
	ErrNotAuthorized     = stderrors.New("not authorized")
	ErrBoundsViolation   = stderrors.New("bounds violation")
	ErrInsufficientFunds = stderrors.New("insufficient funds")
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindStateConflict:
		return "state_conflict"
	case KindNotAuthorized:
		return "not_authorized"
	case KindBoundsViolation:
		return "bounds_violation"
	case KindInsufficientFunds:
		return "insufficient_funds"
	default:
		return "unknown"
	}
}

// Sentinel returns the package-level error matching the kind.
func (k Kind) Sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindStateConflict:
		return ErrStateConflict
	case KindNotAuthorized:
		return ErrNotAuthorized
	case KindBoundsViolation:
		return ErrBoundsViolation
	case KindInsufficientFunds:
		return ErrInsufficientFunds
	default:
		return nil
	}
}

// Error is a classified ledger failure.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Reason
	}
	return e.Op + ": " + e.Reason
}

// Unwrap exposes the kind sentinel and the wrapped cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if sentinel := e.Kind.Sentinel(); sentinel != nil {
		out = append(out, sentinel)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap classifies cause under kind for operation op. A nil cause yields nil.
func Wrap(kind Kind, op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Reason: cause.Error(), Err: cause}
}

// Wrapf classifies cause and prefixes its reason with formatted context.
func Wrapf(kind Kind, op string, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	reason := fmt.Sprintf(format, args...) + ": " + cause.Error()
	return &Error{Kind: kind, Op: op, Reason: reason, Err: cause}
}

// New builds an unwrapped classified error.
func New(kind Kind, op, reason string) error {
	return &Error{Kind: kind, Op: op, Reason: reason}
}

func Invalid(op string, cause error) error      { return Wrap(KindInvalidInput, op, cause) }
func Conflict(op string, cause error) error     { return Wrap(KindStateConflict, op, cause) }
func Unauthorized(op string, cause error) error { return Wrap(KindNotAuthorized, op, cause) }
func Bounds(op string, cause error) error       { return Wrap(KindBoundsViolation, op, cause) }
func Insufficient(op string, cause error) error { return Wrap(KindInsufficientFunds, op, cause) }

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var classified *Error
	if stderrors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}

// Is, As and Join re-export the standard library helpers.
func Is(err, target error) bool     { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Join(errs ...error) error      { return stderrors.Join(errs...) }
