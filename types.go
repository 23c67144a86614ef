package reactive

// Unsubscribe removes a watcher's registration from whatever it
// subscribed to. Safe to call more than once; later calls are no-ops.
type Unsubscribe func()

// Disposer is a teardown callback. An EffectFunc or AsyncEffectFunc
// returns one as its cleanup, run before the effect's next run and on
// Stop; a Scope runs the Disposers registered with it when it is
// disposed. Effects themselves are stopped through EffectRef.Stop.
type Disposer func()

// EqualFunc compares two values of type T for equality. A custom
// EqualFunc lets a Cell, Memo, Task, or Sensor suppress notification when
// a new value is "the same" by some domain rule other than Go's built-in
// comparison (a field subset, deep structural equality, and so on).
type EqualFunc[T any] func(a, b T) bool

// SkipEquality is an EqualFunc that always reports inequality, forcing a
// notification on every write regardless of whether the value looks
// unchanged. Sensors need this most: when an external source mutates an
// object in place and republishes the same reference, reference equality
// would otherwise swallow the update.
//
// Example:
//
//	obj := &Status{State: "offline"}
//	sen := reactive.NewSensorWithOptions(start, reactive.SensorOptions[*Status]{
//	    Value:    obj,
//	    HasValue: true,
//	    Equal:    reactive.SkipEquality[*Status],
//	})
func SkipEquality[T any](_, _ T) bool {
	return false
}

// ReadOnlySignal is the read side of a graph node. Read returns the
// current value, or ErrUnset if the node has no value yet, or a
// computation error if the node is in an error state. Alongside such an
// error a Memo or Task returns whatever it last cached (the zero value
// or its InitialValue if it never cached a result); a Sensor returns its
// zero value.
//
// Calling Read from inside a tracked computation (a Memo body, a Task
// body, or an Effect callback) subscribes the active watcher to this
// node, so the caller's owner recomputes or re-runs when this node
// changes.
type ReadOnlySignal[T any] interface {
	Read() (T, error)
}

// Signal is the writable side of a State cell. NewCell and
// NewCellWithOptions create the concrete implementation.
type Signal[T any] interface {
	ReadOnlySignal[T]

	// Write replaces the current value. It fails with a NullishSignalValue
	// error if v is a nil-equivalent value (nil pointer, nil map, nil
	// slice, nil chan, nil func, or a nil interface); Cells never hold
	// UNSET themselves. If the signal's equality predicate reports v
	// equal to the current value, Write is a no-op: no notification
	// fires.
	Write(v T) error

	// Update replaces the current value with fn(current). The read of
	// the current value for fn's argument does not subscribe the active
	// watcher; the resulting Write notifies the cell's subscribers as
	// any Write does.
	Update(fn func(T) T) error

	// ReadOnly returns a read-only view that exposes Read but not Write
	// or Update, for the encapsulation pattern: keep the Cell private,
	// hand out the read-only view.
	ReadOnly() ReadOnlySignal[T]
}
