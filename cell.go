package reactive

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// cell is the internal implementation of Signal[T] — a mutable root
// node in the dependency graph. It uses the same subscriberSet every
// other node kind uses, so a Memo, Task, or Effect that reads a Cell
// subscribes to it exactly the way it would subscribe to another Memo.
type cell[T any] struct {
	mu    sync.RWMutex
	value T

	equal EqualFunc[T]
	guard func(T) error

	subs *subscriberSet
	id   string

	reads  atomic.Int64
	writes atomic.Int64
}

// NewCell creates a writable Cell seeded with initial. Returns
// NullishSignalValue if initial is nil-equivalent — cells never hold
// UNSET, unlike Memo and Task.
func NewCell[T any](initial T) (Signal[T], error) {
	return NewCellWithOptions(initial, Options[T]{})
}

// NewCellWithOptions creates a Cell with custom equality, lifecycle
// hooks, and/or a write guard.
func NewCellWithOptions[T any](initial T, opts Options[T]) (Signal[T], error) {
	if isNullEquivalent(initial) {
		return nil, newError(NullishSignalValue, "cell", nil)
	}
	if opts.Guard != nil {
		if err := opts.Guard(initial); err != nil {
			return nil, newError(InvalidSignalValue, "cell", err)
		}
	}
	id := "cell-" + uuid.New().String()
	c := &cell[T]{
		value: initial,
		equal: opts.Equal,
		guard: opts.Guard,
		id:    id,
	}
	c.subs = newSubscriberSet(opts.Watched, opts.Unwatched)
	return c, nil
}

// Read returns the cell's current value. If called while a Memo, Task,
// or Effect is computing, that node subscribes to future changes.
func (c *cell[T]) Read() (T, error) {
	c.reads.Add(1)
	subscribeActive(c.subs)

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, nil
}

// Write stores v, notifying subscribers only if the new value differs
// from the old one under the cell's equality function (defaultEqual
// unless Options.Equal overrides it). Rejects nil-equivalent values and
// anything the Guard function rejects, leaving the cell unchanged.
func (c *cell[T]) Write(v T) error {
	if isNullEquivalent(v) {
		return newError(NullishSignalValue, c.id, nil)
	}
	if c.guard != nil {
		if err := c.guard(v); err != nil {
			return newError(InvalidSignalValue, c.id, err)
		}
	}

	c.mu.Lock()
	eq := c.equal
	if eq == nil {
		eq = defaultEqual[T]
	}
	if eq(c.value, v) {
		c.mu.Unlock()
		return nil
	}
	c.value = v
	c.writes.Add(1)
	c.mu.Unlock()

	notifyAndFlush(c.subs)
	return nil
}

// Update replaces the cell's value with fn applied to the current value.
// The read and write are not atomic with respect to concurrent writers —
// callers that need that should wrap the whole read-modify-write in
// their own external lock, the same constraint the teacher's signal
// carried for concurrent Updates.
func (c *cell[T]) Update(fn func(T) T) error {
	c.mu.RLock()
	current := c.value
	c.mu.RUnlock()
	return c.Write(fn(current))
}

// ReadOnly returns a view exposing only Read, for handing out to callers
// that should not be able to mutate the cell.
func (c *cell[T]) ReadOnly() ReadOnlySignal[T] {
	return &readOnlyView[T]{source: c}
}
