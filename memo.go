package reactive

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memo is a lazily, synchronously derived value. Its compute function
// runs inside a tracking scope, so it never declares its dependencies —
// any Cell, Memo, Task, or Sensor it Reads while computing becomes a
// dependency automatically, the same way the teacher's Computed tracked
// dependencies, but without requiring them to be passed in as explicit
// arguments.
//
// A Memo starts dirty and UNSET. It computes on first Read, caches the
// result, and only recomputes when a dependency has actually changed —
// and only notifies its own subscribers when recomputing produces a
// value that differs from the cached one (the bail-out property).
type Memo[T any] struct {
	mu      sync.Mutex
	compute func(prev T) T
	equal   EqualFunc[T]

	subs *subscriberSet
	id   string

	cached    T
	cachedErr error
	hasValue  bool
	dirty     bool
	computing bool
	reentered bool

	// self is this memo's own watcher, subscribed to whatever it read
	// last time it computed. Created lazily on first Read, and torn
	// down (see onDependencyChanged) once nothing depends on this memo
	// anymore, so an unwatched memo graph goes fully quiet instead of
	// continuing to eagerly track.
	self *watcher
}

// NewMemo creates a Memo that computes lazily with default equality.
func NewMemo[T any](compute func(prev T) T) *Memo[T] {
	return NewMemoWithOptions(compute, MemoOptions[T]{})
}

// NewMemoWithOptions creates a Memo with custom equality, lifecycle
// hooks, and/or a seed for the "previous value" argument on first run.
func NewMemoWithOptions[T any](compute func(prev T) T, opts MemoOptions[T]) *Memo[T] {
	m := &Memo[T]{
		compute: compute,
		equal:   opts.Equal,
		id:      "memo-" + uuid.New().String(),
		dirty:   true,
	}
	if opts.HasInitial {
		m.cached = opts.InitialValue
	}
	m.subs = newSubscriberSet(opts.Watched, opts.Unwatched)
	return m
}

// Read returns the memo's current value, computing it first if dirty.
// Rethrows a cached computation error if the last recompute panicked,
// returns ErrUnset if the last computation produced a nil-equivalent
// result (or none has run), and reports CircularDependency if Read is
// called re-entrantly while this memo is already computing; the
// computation that re-entered then caches that same error kind, so the
// outer Read reports it too.
func (m *Memo[T]) Read() (T, error) {
	Flush()
	subscribeActive(m.subs)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.computing {
		m.reentered = true
		var zero T
		return zero, newError(CircularDependency, m.id, nil)
	}

	if m.dirty {
		// Pull path: never notifies (see recomputeLocked's doc comment).
		_ = m.recomputeLocked()
	}

	if m.cachedErr != nil {
		return m.cached, m.cachedErr
	}
	if !m.hasValue {
		return m.cached, ErrUnset
	}
	return m.cached, nil
}

// ensureWatcher lazily creates this memo's own internal watcher. Called
// only while m.mu is held.
func (m *Memo[T]) ensureWatcher() *watcher {
	if m.self == nil {
		m.self = newWatcher(kindInternal, m.onDependencyChanged)
	}
	return m.self
}

// recomputeLocked runs the compute function and updates
// cached/cachedErr/hasValue per the recomputation protocol (§4.3 steps
// 1-5: threw → cache the error, value becomes UNSET; returned
// null-equivalent → "pending", UNSET with no error; ordinary value →
// cache it, clear any prior error). Must be called with m.mu held;
// unlocks it while the user callback runs (so a re-entrant Read from
// inside compute sees m.computing and reports CircularDependency
// instead of deadlocking on a non-reentrant mutex) and re-locks before
// returning. A panic in compute stands in for the spec's "threw".
//
// It never notifies subscribers itself — the pull path (Read) and the
// invalidation path (onDependencyChanged) are kept separate, the way
// the teacher's Get() (computes, never notifies) and markDirty (the
// only notify path) are separate. Read's own caller is almost always
// already subscribed by the time this runs (subscribeActive happens
// before the dirty check), so notifying here on a memo's very first
// computation would reenter that same caller mid-pull. The return
// value reports whether the cached output changed, for
// onDependencyChanged to act on.
func (m *Memo[T]) recomputeLocked() bool {
	w := m.ensureWatcher()
	m.computing = true
	prev := m.cached
	hadValue := m.hasValue
	hadErr := m.cachedErr
	m.mu.Unlock()

	w.drainCleanups()

	var result T
	var computeErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				logPanicRecovered(m.id, r)
				computeErr = newError(InvalidSignalValue, m.id, fmt.Errorf("panic: %v", r))
			}
		}()
		withTracking(w, func() {
			result = m.compute(prev)
		})
	}()

	m.mu.Lock()
	m.computing = false
	m.dirty = false
	if m.reentered && computeErr == nil {
		computeErr = newError(CircularDependency, m.id, nil)
	}
	m.reentered = false

	var changed bool
	switch {
	case computeErr != nil:
		changed = hadErr == nil || hadErr.Error() != computeErr.Error() || hadValue
		m.cachedErr = computeErr
		m.hasValue = false
	case isNullEquivalent(result):
		changed = hadValue || hadErr != nil
		m.cachedErr = nil
		m.hasValue = false
	default:
		eq := m.equal
		if eq == nil {
			eq = defaultEqual[T]
		}
		changed = !hadValue || hadErr != nil || !eq(m.cached, result)
		m.cachedErr = nil
		m.cached = result
		m.hasValue = true
	}

	return changed
}

// onDependencyChanged is this memo's internal watcher's push callback.
// If nothing subscribes to this memo, it tears down its own upstream
// subscriptions and goes back to fully lazy (next Read rebuilds them).
// Otherwise it eagerly recomputes now — the only path that notifies —
// so it can decide and propagate the bail-out property immediately
// rather than waiting for the next pull.
func (m *Memo[T]) onDependencyChanged() {
	m.mu.Lock()
	m.dirty = true

	if m.subs.len() == 0 {
		w := m.self
		m.self = nil
		m.mu.Unlock()
		if w != nil {
			w.stop()
		}
		return
	}

	changed := m.recomputeLocked()
	m.mu.Unlock()
	if changed {
		m.subs.notifyAll()
	}
}
