package reactive

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// EffectRef represents a running effect that can be stopped.
type EffectRef interface {
	// Stop aborts any in-flight async run, invokes any pending cleanup,
	// and removes the effect's watcher from every signal it subscribed
	// to. Safe to call multiple times.
	Stop()
}

// EffectFunc is a synchronous effect body. It may return a cleanup run
// before the next invocation and on Stop.
type EffectFunc func() Disposer

// AsyncEffectFunc is an asynchronous effect body, given an abort token
// that is canceled when the effect re-runs, is stopped, or its owning
// Scope is disposed. Its eventual cleanup registers only if the effect
// has not re-run (or been stopped) in the meantime.
//
// The spec describes a single effect driver whose callback has arity 0
// or 1, the arity selecting sync vs. async; Go has no idiomatic way to
// dispatch on a callback's arity, so that one driver is split into two
// typed constructors here (NewEffect, NewAsyncEffect) sharing this
// implementation underneath.
type AsyncEffectFunc func(ctx context.Context) Disposer

// effect is the internal implementation shared by NewEffect and
// NewAsyncEffect.
type effect struct {
	mu sync.Mutex

	sync  EffectFunc
	async AsyncEffectFunc

	id      string
	self    *watcher
	cleanup Disposer

	generation uint64
	cancel     context.CancelFunc
	parentCtx  context.Context
	owner      *Scope

	stopped bool
}

// NewEffect creates a synchronous effect: fn runs immediately, then
// again every time a Cell, Memo, Task, or Sensor it read last time
// changes.
func NewEffect(fn EffectFunc) EffectRef {
	e, _ := newEffect(fn, nil, EffectOptions{})
	return e
}

// NewEffectWithOptions creates a synchronous effect bound to an owning
// Scope and/or a custom parent context.
func NewEffectWithOptions(fn EffectFunc, opts EffectOptions) (EffectRef, error) {
	return newEffect(fn, nil, opts)
}

// NewAsyncEffect creates an asynchronous effect: fn runs in its own
// goroutine, immediately and then again on every dependency change,
// exactly as NewEffect, except its abort token lets it cooperate with
// cancellation instead of blocking the notification that triggered it.
func NewAsyncEffect(fn AsyncEffectFunc) EffectRef {
	e, _ := newEffect(nil, fn, EffectOptions{})
	return e
}

// NewAsyncEffectWithOptions creates an asynchronous effect bound to an
// owning Scope and/or a custom parent context.
func NewAsyncEffectWithOptions(fn AsyncEffectFunc, opts EffectOptions) (EffectRef, error) {
	return newEffect(nil, fn, opts)
}

func newEffect(sync EffectFunc, async AsyncEffectFunc, opts EffectOptions) (*effect, error) {
	id := "effect-" + uuid.New().String()
	if err := requireOwnerIfStrict(opts.Owner, id); err != nil {
		return nil, err
	}

	parentCtx := opts.Context
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	if opts.Owner != nil {
		parentCtx = opts.Owner.Context()
	}

	e := &effect{
		sync:      sync,
		async:     async,
		id:        id,
		parentCtx: parentCtx,
		owner:     opts.Owner,
	}
	e.self = newWatcher(kindEffect, e.runNotified)

	if opts.Owner != nil {
		opts.Owner.own(e.Stop)
	}

	e.runInitial()
	return e, nil
}

// runInitial is the effect's first run, executed synchronously on
// construction regardless of batching — an effect always sees its
// initial state immediately.
func (e *effect) runInitial() {
	e.run()
}

// runNotified is the watcher's push callback, invoked by Flush once
// this effect's watcher reaches the front of the pending queue.
func (e *effect) runNotified() {
	e.run()
}

// run executes one generation of the effect: cancel the previous
// generation's abort token (without waiting for that run to return),
// drain stale dependency subscriptions and
// cleanup, then invoke the body under tracking.
func (e *effect) run() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.generation++
	gen := e.generation
	w := e.self
	e.mu.Unlock()

	w.drainCleanups()
	e.runCleanup()

	if e.sync != nil {
		e.runSync(w, gen)
		return
	}
	e.runAsync(w, gen)
}

func (e *effect) runCleanup() {
	e.mu.Lock()
	cleanup := e.cleanup
	e.cleanup = nil
	e.mu.Unlock()
	if cleanup == nil {
		return
	}
	if err := runCleanupSafely(func() { cleanup() }); err != nil {
		logCleanupErrors(e.id, err)
	}
}

func (e *effect) runSync(w *watcher, gen uint64) {
	var result Disposer
	func() {
		defer func() {
			if r := recover(); r != nil {
				logPanicRecovered(e.id, r)
			}
		}()
		withTracking(w, func() {
			result = e.sync()
		})
	}()

	e.mu.Lock()
	if gen == e.generation {
		e.cleanup = result
	}
	e.mu.Unlock()
}

func (e *effect) runAsync(w *watcher, gen uint64) {
	ctx, cancel := context.WithCancel(e.parentCtx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	runFn := func() error {
		var result Disposer
		func() {
			defer func() {
				if r := recover(); r != nil {
					logPanicRecovered(e.id, r)
				}
			}()
			withTracking(w, func() {
				result = e.async(ctx)
			})
		}()

		e.mu.Lock()
		if gen == e.generation && !e.stopped {
			e.cleanup = result
			e.cancel = nil
		}
		e.mu.Unlock()
		return nil
	}

	if e.owner != nil {
		e.owner.track(runFn)
	} else {
		go func() { _ = runFn() }()
	}
}

// Stop aborts any in-flight run, invokes the last registered cleanup,
// and tears down the watcher's subscriptions. Safe to call more than
// once.
func (e *effect) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancel := e.cancel
	e.cancel = nil
	w := e.self
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.runCleanup()
	if w != nil {
		w.stop()
	}
}
