package reactive

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	multierror "github.com/hashicorp/go-multierror"
)

// watcherKind distinguishes a derived node's own internal watcher (Memo,
// Task) from a terminal Effect watcher. Both are dispatched the same
// way (see dispatch/Flush); the distinction exists for callers that
// care what a watcher represents — an internal watcher exists only to
// keep a derived node's dirty flag and cache coherent, while an effect
// watcher's push is the user-visible side effect body.
type watcherKind int

const (
	kindInternal watcherKind = iota
	kindEffect
)

// watcher is a subscription node: something that can be registered as a
// signal's subscriber and invoked when that signal notifies. A Memo or
// Task owns exactly one watcher (created lazily, the first time it is
// read); an Effect *is* a watcher bound to a user callback.
type watcher struct {
	id   uuid.UUID
	kind watcherKind

	// push is invoked on notification. For an internal watcher this
	// marks its owning node dirty (and, per the node's own rules,
	// eagerly recomputes or cascades further). For an effect watcher,
	// push re-runs the effect body.
	push func()

	mu       sync.Mutex
	cleanups []func()
	stopped  bool
}

func newWatcher(kind watcherKind, push func()) *watcher {
	return &watcher{id: uuid.New(), kind: kind, push: push}
}

// addCleanup registers fn to run the next time this watcher's
// subscriptions are torn down (via drainCleanups or stop). Cleanups run
// in insertion order, every one of them, regardless of earlier ones
// panicking.
func (w *watcher) addCleanup(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cleanups = append(w.cleanups, fn)
}

// drainCleanups runs and clears the cleanup list without permanently
// retiring the watcher — used before a Memo/Task/Effect re-tracks its
// dependencies on the next run, so stale subscriptions from the previous
// run are released first.
func (w *watcher) drainCleanups() error {
	w.mu.Lock()
	list := w.cleanups
	w.cleanups = nil
	w.mu.Unlock()

	var result error
	for _, fn := range list {
		if err := runCleanupSafely(fn); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func runCleanupSafely(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup panic: %v", r)
		}
	}()
	fn()
	return nil
}

// stop permanently retires the watcher: its cleanups run exactly once,
// and any push delivered afterward is ignored. Errors collected from
// the cleanup chain are reported through the logging side-channel
// rather than propagated, per the spec's cleanup-error policy.
func (w *watcher) stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	if err := w.drainCleanups(); err != nil {
		logCleanupErrors(w.id.String(), err)
	}
}

func (w *watcher) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// subscriberSet is the registry a single graph node keeps of the
// watchers currently depending on it, plus its lazy watched/unwatched
// hooks. Every node kind (Cell, Memo, Task, Sensor) embeds one.
type subscriberSet struct {
	mu        sync.Mutex
	watchers  map[*watcher]struct{}
	watched   func()
	unwatched func()
}

func newSubscriberSet(watched, unwatched func()) *subscriberSet {
	return &subscriberSet{
		watchers:  make(map[*watcher]struct{}),
		watched:   watched,
		unwatched: unwatched,
	}
}

func (ss *subscriberSet) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.watchers)
}

// subscribe registers w, firing the watched hook outside any tracking
// scope on the empty-to-non-empty transition, and registers a cleanup on
// w that removes it again — maintaining the invariant that every
// subscriber set member has a matching cleanup.
func (ss *subscriberSet) subscribe(w *watcher) {
	ss.mu.Lock()
	if _, exists := ss.watchers[w]; exists {
		ss.mu.Unlock()
		return
	}
	wasEmpty := len(ss.watchers) == 0
	ss.watchers[w] = struct{}{}
	ss.mu.Unlock()

	w.addCleanup(func() { ss.unsubscribe(w) })

	if wasEmpty && ss.watched != nil {
		withoutTracking(ss.watched)
	}
}

func (ss *subscriberSet) unsubscribe(w *watcher) {
	ss.mu.Lock()
	if _, exists := ss.watchers[w]; !exists {
		ss.mu.Unlock()
		return
	}
	delete(ss.watchers, w)
	becameEmpty := len(ss.watchers) == 0
	ss.mu.Unlock()

	if becameEmpty && ss.unwatched != nil {
		withoutTracking(ss.unwatched)
	}
}

// notifyAll dispatches to a snapshot of the current subscriber set, so a
// watcher that unsubscribes itself mid-dispatch (a Memo tearing itself
// down because it just lost its own last subscriber) does not corrupt
// this iteration.
func (ss *subscriberSet) notifyAll() {
	ss.mu.Lock()
	snapshot := make([]*watcher, 0, len(ss.watchers))
	for w := range ss.watchers {
		snapshot = append(snapshot, w)
	}
	ss.mu.Unlock()

	for _, w := range snapshot {
		dispatch(w)
	}
}

// scheduler holds the process-wide (but struct-scoped, for testability)
// reactive state: the active-watcher stack tracked reads register
// against, the batch nesting depth, and the pending notification queue
// (watchers of every kind) that Flush drains.
//
// The graph itself is single-threaded and cooperative by design (§5):
// suspension only happens inside user async callbacks. The mutex here
// exists solely to let Task and async Effect goroutines settle back into
// this state safely from a different goroutine than the one that started
// them — it does not imply the tracked read/write protocol itself is
// meant to run concurrently.
type scheduler struct {
	mu           sync.Mutex
	activeStack  []*watcher
	batchDepth   int
	pending      map[*watcher]struct{}
	pendingOrder []*watcher
}

var sched = &scheduler{}

// withTracking runs f with w pushed onto the active-watcher stack, so
// any signal read during f subscribes w. The previous active watcher (if
// any) is restored even if f panics.
func withTracking(w *watcher, f func()) {
	sched.mu.Lock()
	sched.activeStack = append(sched.activeStack, w)
	sched.mu.Unlock()

	defer func() {
		sched.mu.Lock()
		sched.activeStack = sched.activeStack[:len(sched.activeStack)-1]
		sched.mu.Unlock()
	}()

	f()
}

// withoutTracking runs f with no active watcher, so reads inside f never
// create subscriptions. Lifecycle hooks (watched/unwatched) always run
// this way.
func withoutTracking(f func()) {
	withTracking(nil, f)
}

// readActive returns the currently active watcher, or nil if none.
func readActive() *watcher {
	sched.mu.Lock()
	defer sched.mu.Unlock()
	n := len(sched.activeStack)
	if n == 0 {
		return nil
	}
	return sched.activeStack[n-1]
}

// subscribeActive subscribes the active watcher (if any) to ss. Called
// from every node kind's Read().
func subscribeActive(ss *subscriberSet) {
	if w := readActive(); w != nil {
		ss.subscribe(w)
	}
}

// dispatch delivers a notification to w by enqueueing it onto the
// pending queue (a set, so a watcher notified twice collapses to one
// entry), regardless of watcher kind or batch depth. Draining that
// queue — not recursing straight into w.push() — is what keeps a
// reconvergent (diamond) dependency graph from recomputing a fan-in
// node once per incoming path: when a and b both notify c, c's own
// push is enqueued once and runs after both a and b have already been
// popped and recomputed, so it reads their settled values instead of a
// stale one. See notifyAndFlush and Flush for who drains the queue and
// when.
func dispatch(w *watcher) {
	if w.isStopped() {
		return
	}

	sched.mu.Lock()
	if sched.pending == nil {
		sched.pending = make(map[*watcher]struct{})
	}
	if _, queued := sched.pending[w]; !queued {
		sched.pending[w] = struct{}{}
		sched.pendingOrder = append(sched.pendingOrder, w)
	}
	sched.mu.Unlock()
}

// Batch groups writes so their effects run once each, after every write
// in f has applied, instead of once per write. Re-entrant: only the
// outermost Batch call drains the pending queue. A Memo or Task Read
// inside f calls Flush, which drains whatever is queued at that point.
func Batch(f func()) {
	sched.mu.Lock()
	sched.batchDepth++
	sched.mu.Unlock()

	defer func() {
		sched.mu.Lock()
		sched.batchDepth--
		depth := sched.batchDepth
		sched.mu.Unlock()
		if depth == 0 {
			Flush()
		}
	}()

	f()
}

// Flush drains the pending queue synchronously and unconditionally, in
// FIFO order. Batch calls it automatically when the outermost batch
// ends; call it directly after code that might have deferred
// notifications (for example, from a test) to force them to run before
// proceeding.
//
// Draining is iterative and FIFO, not recursive: a push popped off the
// front may itself call dispatch (appending further watchers to the
// back), and the loop picks those up on a later iteration instead of
// diving into them immediately. That ordering is what gives a
// reconvergent dependency graph glitch-free propagation — see
// dispatch's doc comment.
func Flush() {
	for {
		sched.mu.Lock()
		if len(sched.pendingOrder) == 0 {
			sched.mu.Unlock()
			return
		}
		w := sched.pendingOrder[0]
		sched.pendingOrder = sched.pendingOrder[1:]
		delete(sched.pending, w)
		sched.mu.Unlock()

		w.push()
	}
}

// notifyAndFlush notifies ss's subscribers and, unless a batch is
// currently open, drains the pending queue before returning — so a
// top-level write (Cell.Write, Sensor.set/Notify, a Task's async
// settle) is synchronous from its caller's point of view exactly the
// way an unbatched write was before queueing existed, while a write
// inside Batch(f) defers to f's caller the same way it always has.
// Never call this from inside a push callback (onDependencyChanged and
// friends) — those already run on Flush's own call stack, so a plain
// ss.notifyAll() there lets the in-progress drain pick up whatever it
// enqueues.
func notifyAndFlush(ss *subscriberSet) {
	ss.notifyAll()

	sched.mu.Lock()
	depth := sched.batchDepth
	sched.mu.Unlock()
	if depth == 0 {
		Flush()
	}
}
