package reactive

import (
	"errors"
	"fmt"
)

// Kind classifies the errors this package's API boundary can produce.
// Consumers that want to branch on error category should compare Kind,
// not match on message text.
type Kind int

const (
	// CircularDependency means a Memo, Task, or Effect re-entered its own
	// computation while already computing — A reads B reads A in one
	// evaluation.
	CircularDependency Kind = iota

	// NullishSignalValue means a Write/Update call tried to store a
	// nil-equivalent value in a Cell, which never holds UNSET.
	NullishSignalValue

	// InvalidSignalValue means a value was rejected or could not be
	// produced: a Cell's Guard rejected the initial value or a Write, or
	// a Memo's compute function panicked (the panic is the Cause).
	InvalidSignalValue

	// InvalidCallback means a callback passed to Effect has an arity or
	// shape the driver does not support (only 0- and 1-argument callbacks
	// are accepted).
	InvalidCallback

	// UnsetSignalValue is returned by Read when a Memo, Task, or Sensor
	// has no value yet. It is not a failure; ErrUnset wraps this Kind and
	// is meant to be checked with errors.Is.
	UnsetSignalValue

	// ReadonlySignal means code attempted to Write or Update through a
	// read-only view.
	ReadonlySignal

	// DuplicateKey means a Scope or registry rejected a second watcher
	// registered under a key that must be unique.
	DuplicateKey

	// RequiredOwner means an Effect or Task was started without an
	// ambient Scope where one is required, risking an orphaned
	// subscription.
	RequiredOwner
)

func (k Kind) String() string {
	switch k {
	case CircularDependency:
		return "CircularDependency"
	case NullishSignalValue:
		return "NullishSignalValue"
	case InvalidSignalValue:
		return "InvalidSignalValue"
	case InvalidCallback:
		return "InvalidCallback"
	case UnsetSignalValue:
		return "UnsetSignalValue"
	case ReadonlySignal:
		return "ReadonlySignal"
	case DuplicateKey:
		return "DuplicateKey"
	case RequiredOwner:
		return "RequiredOwner"
	default:
		return "Unknown"
	}
}

// Error is the error type returned across the package's API boundary.
// Node identifies which graph node raised it (a debug label, not a
// stable identifier contract); Cause, if present, is the underlying
// panic or computation error that triggered it.
type Error struct {
	Kind  Kind
	Node  string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("reactive: %s [%s]: %v", e.Kind, e.Node, e.Cause)
	}
	return fmt.Sprintf("reactive: %s [%s]", e.Kind, e.Node)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, &reactive.Error{Kind: reactive.CircularDependency}).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func newError(kind Kind, node string, cause error) *Error {
	return &Error{Kind: kind, Node: node, Cause: cause}
}

// ErrUnset is returned by Read on a Memo, Task, or Sensor that has no
// value yet. It is a sentinel, not a failure: check for it with
// errors.Is(err, reactive.ErrUnset).
var ErrUnset = &Error{Kind: UnsetSignalValue, Node: "unset"}
