package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in the render pipeline the error occurred.
type Phase string

const (
	PhaseMarshal   Phase = "marshal"   // host string to boundary buffer
	PhaseSerialize Phase = "serialize" // host value to JSON text
	PhaseExecute   Phase = "execute"   // foreign engine execution
	PhaseBoundary  Phase = "boundary"  // transport across the boundary
)

// Kind categorizes the error.
type Kind string

const (
	KindInvalidInput  Kind = "invalid_input"
	KindSerialization Kind = "serialization"
	KindExecution     Kind = "execution"
	KindTrap          Kind = "trap"
	KindNotFound      Kind = "not_found"
	KindInvalidData   Kind = "invalid_data"
	KindClosed        Kind = "closed"
)

// Error is the structured error type used throughout the bridge.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error's phase and kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Message returns the message carried by the error. For execution errors this
// is the engine's verbatim error string.
func (e *Error) Message() string {
	return e.Detail
}

// Convenience constructors for the bridge's error categories

// InvalidInput reports an input string that cannot be represented at the
// boundary.
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Serialization reports a data value that failed JSON serialization.
func Serialization(cause error) *Error {
	return &Error{
		Phase:  PhaseSerialize,
		Kind:   KindSerialization,
		Detail: "serialize data to JSON",
		Cause:  cause,
	}
}

// Execution reports a non-empty error string from the foreign engine. The
// message is carried verbatim.
func Execution(message string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindExecution,
		Detail: message,
	}
}

// Trap reports a transport-level fault during a boundary call.
func Trap(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindTrap,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound reports a missing engine export.
func NotFound(what, name string) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidData reports malformed data at the boundary.
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// Closed reports an operation on a closed engine.
func Closed(what string) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// Category predicates for callers branching on failure category

// IsInvalidInput reports whether err is an invalid-input error.
func IsInvalidInput(err error) bool {
	return hasKind(err, KindInvalidInput)
}

// IsSerialization reports whether err is a serialization error.
func IsSerialization(err error) bool {
	return hasKind(err, KindSerialization)
}

// IsExecution reports whether err is an engine execution error.
func IsExecution(err error) bool {
	return hasKind(err, KindExecution)
}

func hasKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
