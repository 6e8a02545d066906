package errors

import (
	"fmt"
)

// Kind categorizes an engine error. The taxonomy drives the degradation
// policy: input errors surface to the caller, collaborator and data errors
// downgrade to neutral defaults at the component boundary.
type Kind int

const (
	// KindInput - invalid branch reference, missing merge base. Surfaced to
	// the caller as a structured failure; never retried.
	KindInput Kind = iota
	// KindCollaborator - a git or store operation failed transiently.
	// Caught at each component boundary and downgraded to a safe default.
	KindCollaborator
	// KindData - malformed or absent historical pattern data. Treated as
	// "no signal", never fatal.
	KindData
	// KindInternal - unexpected internal state.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindCollaborator:
		return "collaborator"
	case KindData:
		return "data"
	default:
		return "internal"
	}
}

// Error is a structured engine error with a kind and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on kind so callers can branch with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error. Returns nil when err is nil.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// Wrapf wraps an existing error with formatting.
func Wrapf(err error, kind Kind, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Convenience constructors for the common kinds.

// InputError marks invalid caller input.
func InputError(format string, args ...interface{}) *Error {
	return Newf(KindInput, format, args...)
}

// CollaboratorError wraps a failed git or store call.
func CollaboratorError(err error, format string, args ...interface{}) *Error {
	return Wrapf(err, KindCollaborator, format, args...)
}

// IsInput reports whether the error is caller input related.
func IsInput(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == KindInput
	}
	return false
}
