package reactive

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// StrictOwnership, when set, makes NewEffectWithOptions and
// NewTaskWithOptions reject a nil Owner with a RequiredOwner error
// instead of silently falling back to context.Background(). Off by
// default; enable it in an application's entry point once all effects
// and tasks are scoped, to catch orphaned subscriptions in review
// instead of at runtime.
var StrictOwnership bool

// Scope is a structured-lifetime container for effects and async
// derivations (§4.7). It is independent of the dependency graph itself
// — disposing a Scope disposes every watcher registered under it, but
// does not affect Cells or Memos a disposed Effect happened to read.
type Scope struct {
	mu        sync.Mutex
	disposers []Disposer
	disposed  bool

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewScope creates a Scope. Its context is derived from
// context.Background(); Effects and Tasks registered with this Owner
// see that context canceled the moment the scope is disposed.
func NewScope() *Scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scope{ctx: ctx, cancel: cancel, group: &errgroup.Group{}}
}

// Context returns the scope's cancellation context.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// own registers d to run on disposal. If the scope is already disposed,
// d runs immediately — a watcher created against a dead scope is torn
// down on the spot rather than leaking.
func (s *Scope) own(d Disposer) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		d()
		return
	}
	s.disposers = append(s.disposers, d)
	s.mu.Unlock()
}

// track registers a background goroutine (an async Effect run or Task
// run) with the scope's errgroup, so Wait can observe it settling.
func (s *Scope) track(fn func() error) {
	s.group.Go(fn)
}

// Dispose cancels the scope's context and runs every registered
// disposer exactly once, in registration order. Idempotent.
func (s *Scope) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	ds := s.disposers
	s.disposers = nil
	s.mu.Unlock()

	s.cancel()
	for _, d := range ds {
		d()
	}
}

// Wait blocks until every goroutine tracked via track has returned.
// Primarily useful in tests, to observe an aborted Task/Effect run
// finish unwinding after Dispose before asserting on final state.
func (s *Scope) Wait() error {
	return s.group.Wait()
}

func requireOwnerIfStrict(owner *Scope, node string) error {
	if StrictOwnership && owner == nil {
		return newError(RequiredOwner, node, nil)
	}
	return nil
}
