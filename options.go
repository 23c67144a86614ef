package reactive

import "context"

// Options configures a Cell.
type Options[T any] struct {
	// Equal is an optional custom equality function. If nil, Write uses
	// defaultEqual (comparable types compared by ==, everything else
	// always considered changed).
	Equal EqualFunc[T]

	// Watched, if set, runs once — outside any tracking scope — the
	// moment the cell's subscriber set transitions from empty to
	// non-empty.
	Watched func()

	// Unwatched, if set, runs once — outside any tracking scope — the
	// moment the cell's subscriber set transitions back to empty.
	Unwatched func()

	// Guard, if set, is consulted before each Write/Update; returning an
	// error rejects the write and leaves the cell's value unchanged.
	Guard func(T) error
}

// MemoOptions configures a Memo.
type MemoOptions[T any] struct {
	// InitialValue seeds the "previous value" argument passed to the
	// compute function on its very first run, before anything has been
	// cached yet.
	InitialValue T
	HasInitial   bool

	Equal     EqualFunc[T]
	Watched   func()
	Unwatched func()
}

// TaskOptions configures a Task. Shape mirrors MemoOptions, plus an
// optional owning Scope — a Task is an async derivation and the spec's
// ambient-owner requirement for orphan-avoidance applies to it the same
// way it applies to Effect.
type TaskOptions[T any] struct {
	InitialValue T
	HasInitial   bool

	Equal     EqualFunc[T]
	Watched   func()
	Unwatched func()
	Owner     *Scope
}

// SensorOptions configures a Sensor.
type SensorOptions[T any] struct {
	// Value seeds the sensor before Start has ever run.
	Value    T
	HasValue bool

	// Equal defaults to defaultEqual. Pass SkipEquality to force every
	// Notify/Set call to propagate even when the value "looks" the same
	// — the standard way to observe in-place mutation of a shared
	// object.
	Equal EqualFunc[T]
}

// EffectOptions configures an Effect.
type EffectOptions struct {
	// Owner, if set, binds the effect's lifetime to a Scope: the effect
	// is disposed automatically when the scope is disposed, and is
	// registered so RequiredOwner validation (for effects started deep
	// inside library code) is satisfied.
	Owner *Scope

	// Context seeds the abort token's parent for async effect bodies. If
	// nil, context.Background() is used. When Owner is set, the Owner's
	// context is used instead and Context is ignored.
	Context context.Context
}
