package matching

import (
	"fmt"
	"log"
)

// Kind is the error taxonomy the engine surfaces to callers. These are
// kinds, not names: transport bindings map each to a status code.
type Kind int

const (
	// KindValidation covers malformed input: missing field, bad
	// decimal scale, non-positive quantity/price, unknown symbol,
	// type/price incoherence. Caller fault; no book mutation occurs.
	KindValidation Kind = iota
	// KindNotFound covers a referenced order that does not exist.
	KindNotFound
	// KindInvalidState covers cancel against a terminal order, or a
	// double-cancel.
	KindInvalidState
	// KindInternal covers invariant violations. Never silently
	// recovered.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidState:
		return "INVALID_STATE"
	case KindInternal:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is the engine's structured error type.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func validationErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalidStateErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// internalErrorf constructs a KindInternal error. These mark invariant
// violations the caller cannot have caused, so every one is logged with
// context here, at the single construction point, rather than trusting
// every call site to remember to. assertInternal additionally panics in
// debug builds (built with -tags debug) so invariant violations are
// caught loudly in testing rather than surfacing only as a 500.
func internalErrorf(err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	log.Printf("matching: internal error: %s: %v", msg, err)
	assertInternal(msg, err)
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}
