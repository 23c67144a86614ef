package reactive

import (
	"sync"

	"github.com/google/uuid"
)

// Sensor bridges a push-driven external source — timers, event
// emitters, OS-level observers, websocket frames — into the graph
// (§4.5). It has no compute function; an external start closure calls
// back into the sensor's set function whenever the outside world
// produces a new value.
type Sensor[T any] struct {
	mu    sync.Mutex
	start func(set func(T)) func()
	equal EqualFunc[T]

	subs *subscriberSet
	id   string

	value    T
	hasValue bool
	stop     func()
	live     bool
	starting bool
}

// NewSensor creates a Sensor. start is called — outside any tracking
// scope — the moment the sensor gains its first subscriber; it receives
// a set function and may return a stop closure, invoked when the
// sensor's last subscriber departs.
func NewSensor[T any](start func(set func(T)) func()) *Sensor[T] {
	return NewSensorWithOptions(start, SensorOptions[T]{})
}

// NewSensorWithOptions creates a Sensor seeded with an initial value and
// custom equality. Pass SkipEquality to force every Notify/set call to
// propagate even when the new value looks identical to the old one —
// the standard way to observe in-place mutation of a shared object.
func NewSensorWithOptions[T any](start func(set func(T)) func(), opts SensorOptions[T]) *Sensor[T] {
	s := &Sensor[T]{
		start: start,
		equal: opts.Equal,
		id:    "sensor-" + uuid.New().String(),
	}
	if opts.HasValue {
		s.value = opts.Value
		s.hasValue = true
	}
	s.subs = newSubscriberSet(s.onWatched, s.onUnwatched)
	return s
}

// Read subscribes the active watcher (if any) and returns the sensor's
// current value, starting the sensor if this is its first subscriber.
func (s *Sensor[T]) Read() (T, error) {
	subscribeActive(s.subs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasValue {
		return s.value, ErrUnset
	}
	return s.value, nil
}

// Notify propagates a change without altering the cached value — for
// when the external system has mutated the referenced object in place
// and subscribers need to re-derive from it.
func (s *Sensor[T]) Notify() {
	notifyAndFlush(s.subs)
}

// set is the callback handed to start; it performs a write-with-notify
// honoring the sensor's equality function. While start itself is still
// running, set only stores the value: the one subscriber whose Read
// triggered start reads it as soon as start returns.
func (s *Sensor[T]) set(v T) {
	s.mu.Lock()
	eq := s.equal
	if eq == nil {
		eq = defaultEqual[T]
	}
	if s.hasValue && eq(s.value, v) {
		s.mu.Unlock()
		return
	}
	s.value = v
	s.hasValue = true
	starting := s.starting
	s.mu.Unlock()

	if starting {
		return
	}
	notifyAndFlush(s.subs)
}

// onWatched runs the start closure on the empty-to-non-empty transition.
func (s *Sensor[T]) onWatched() {
	s.mu.Lock()
	if s.live {
		s.mu.Unlock()
		return
	}
	s.live = true
	s.starting = true
	s.mu.Unlock()

	stop := s.start(s.set)

	s.mu.Lock()
	s.stop = stop
	s.starting = false
	s.mu.Unlock()
}

// onUnwatched invokes the stored stop closure and forgets it, returning
// the sensor to Idle; a later subscription restarts it from scratch.
func (s *Sensor[T]) onUnwatched() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.live = false
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}
