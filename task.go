package reactive

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Task is an asynchronously derived value (§4.4). Its compute function
// runs in its own goroutine, receiving the previous value and a
// context that is canceled if a dependency changes, the Task is
// disposed, or its owning Scope is disposed — the abort token.
//
// At most one run is ever in flight. A dependency change while a run is
// in flight cancels it and immediately starts a fresh one with the
// latest inputs; the stale run's eventual result is discarded by a
// generation check, not awaited.
type Task[T any] struct {
	mu      sync.Mutex
	compute func(ctx context.Context, prev T) (T, error)
	equal   EqualFunc[T]

	subs *subscriberSet
	id   string

	cached    T
	cachedErr error
	hasValue  bool
	dirty     bool
	disposed  bool

	self       *watcher
	cancel     context.CancelFunc
	generation uint64
	parentCtx  context.Context
	owner      *Scope
}

// NewTask creates a Task with default equality and no owning Scope.
func NewTask[T any](compute func(ctx context.Context, prev T) (T, error)) *Task[T] {
	t, _ := NewTaskWithOptions(compute, TaskOptions[T]{})
	return t
}

// NewTaskWithOptions creates a Task with custom equality, lifecycle
// hooks, a seed for the first run's "previous value", and/or an owning
// Scope. Returns a RequiredOwner error if StrictOwnership is enabled and
// opts.Owner is nil.
func NewTaskWithOptions[T any](compute func(ctx context.Context, prev T) (T, error), opts TaskOptions[T]) (*Task[T], error) {
	id := "task-" + uuid.New().String()
	if err := requireOwnerIfStrict(opts.Owner, id); err != nil {
		return nil, err
	}

	parentCtx := context.Background()
	if opts.Owner != nil {
		parentCtx = opts.Owner.Context()
	}

	t := &Task[T]{
		compute:   compute,
		equal:     opts.Equal,
		id:        id,
		dirty:     true,
		parentCtx: parentCtx,
		owner:     opts.Owner,
	}
	if opts.HasInitial {
		t.cached = opts.InitialValue
	}
	t.subs = newSubscriberSet(opts.Watched, opts.Unwatched)

	if opts.Owner != nil {
		opts.Owner.own(t.Dispose)
	}
	return t, nil
}

// Read returns the task's currently cached value (possibly UNSET) and
// kicks off a run if dirty and none is in flight. It never blocks on the
// async computation — the pull only ever observes the last settled
// state.
func (t *Task[T]) Read() (T, error) {
	Flush()

	// A Task's compute runs on its own goroutine, so "computing" can't be
	// a simple flag the way Memo's is: a concurrent Read from some other
	// goroutine while a run is in flight is the normal case (step 2 of
	// the recomputation protocol), not re-entry. Only a Read that happens
	// on the same logical call stack as this task's own in-flight
	// compute — i.e. this task's watcher is the one currently tracking —
	// is genuine self-recursion.
	t.mu.Lock()
	self := t.self
	t.mu.Unlock()
	if self != nil && readActive() == self {
		var zero T
		return zero, newError(CircularDependency, t.id, nil)
	}

	subscribeActive(t.subs)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dirty && t.cancel == nil && !t.disposed {
		t.kickoffLocked()
	}

	if t.cachedErr != nil {
		return t.cached, t.cachedErr
	}
	if !t.hasValue {
		return t.cached, ErrUnset
	}
	return t.cached, nil
}

func (t *Task[T]) ensureWatcherLocked() *watcher {
	if t.self == nil {
		t.self = newWatcher(kindInternal, t.onDependencyChanged)
	}
	return t.self
}

// kickoffLocked starts a fresh run. Must be called with t.mu held and
// t.cancel == nil (no run currently in flight).
func (t *Task[T]) kickoffLocked() {
	w := t.ensureWatcherLocked()
	ctx, cancel := context.WithCancel(t.parentCtx)
	t.cancel = cancel
	t.generation++
	gen := t.generation
	prev := t.cached

	runFn := func() error {
		t.run(ctx, w, gen, prev)
		return nil
	}
	if t.owner != nil {
		t.owner.track(runFn)
	} else {
		go func() { _ = runFn() }()
	}
}

// run executes the compute callback under tracking and settles the
// result. Invoked on its own goroutine; never holds t.mu while the user
// callback runs.
func (t *Task[T]) run(ctx context.Context, w *watcher, gen uint64, prev T) {
	w.drainCleanups()

	var result T
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				logPanicRecovered(t.id, r)
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		withTracking(w, func() {
			result, err = t.compute(ctx, prev)
		})
	}()

	t.settle(gen, ctx, result, err)
}

// settle applies a run's outcome per the recomputation protocol (§4.4
// steps 5-9). A settle whose generation no longer matches the task's
// current generation is a late arrival from a superseded run and is
// dropped outright — not even its abort status is inspected.
func (t *Task[T]) settle(gen uint64, ctx context.Context, result T, err error) {
	t.mu.Lock()
	if gen != t.generation {
		t.mu.Unlock()
		return
	}

	t.cancel = nil

	var changed bool
	switch {
	case ctx.Err() != nil:
		// Aborted: suppressed like a "nil" transition. Stays dirty so a
		// pull (or the retry onDependencyChanged already scheduled)
		// produces a fresh run.
		t.dirty = true
	case err != nil:
		changed = t.cachedErr == nil || t.cachedErr.Error() != err.Error()
		t.cachedErr = err
		t.hasValue = false
		t.dirty = false
	case isNullEquivalent(result):
		changed = t.hasValue || t.cachedErr != nil
		t.hasValue = false
		t.cachedErr = nil
		t.dirty = false
	default:
		eq := t.equal
		if eq == nil {
			eq = defaultEqual[T]
		}
		changed = !t.hasValue || t.cachedErr != nil || !eq(t.cached, result)
		t.cached = result
		t.hasValue = true
		t.cachedErr = nil
		t.dirty = false
	}
	t.mu.Unlock()

	if changed {
		notifyAndFlush(t.subs)
	}
}

// onDependencyChanged is this task's internal watcher's push callback.
// A live run is aborted and immediately superseded by a fresh one
// (carrying the latest prev value and a new generation); with no run in
// flight and no subscribers, the task tears itself down instead.
func (t *Task[T]) onDependencyChanged() {
	t.mu.Lock()
	t.dirty = true

	if t.disposed {
		t.mu.Unlock()
		return
	}

	if t.cancel != nil {
		cancel := t.cancel
		t.cancel = nil
		t.mu.Unlock()
		cancel()
		t.mu.Lock()
		t.kickoffLocked()
		t.mu.Unlock()
		return
	}

	if t.subs.len() == 0 {
		w := t.self
		t.self = nil
		t.mu.Unlock()
		if w != nil {
			w.stop()
		}
		return
	}

	t.kickoffLocked()
	t.mu.Unlock()
}

// Dispose aborts any in-flight run and releases this task's dependency
// subscriptions. Safe to call more than once.
func (t *Task[T]) Dispose() {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	t.disposed = true
	cancel := t.cancel
	t.cancel = nil
	w := t.self
	t.self = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if w != nil {
		w.stop()
	}
}
