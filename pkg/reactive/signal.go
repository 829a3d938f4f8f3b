package reactive

import (
	"reflect"
	"sync"

	"github.com/vango-dev/hydra/pkg/owner"
)

// Signal is a (get, set) pair over plain storage: the simplest member of
// the Primitive sum type (Signal | Memo | Projection).
type Signal[T any] struct {
	id    string
	mu    sync.RWMutex
	value T
	equal func(a, b T) bool

	subsMu sync.Mutex
	subs   map[Listener]struct{}
}

// Option configures a primitive at creation. It mirrors the recognized
// option set in spec.md §6.4: equals, lazy, deferStream, ssrSource — each
// primitive constructor only consults the options relevant to it.
type Option[T any] struct {
	Equals     func(a, b T) bool
	Lazy       bool
	DeferStream bool
	SSRSource  SSRSource
}

// SSRSource selects how compute and serialization cooperate for a given
// primitive, per spec.md §4.2.
type SSRSource int

const (
	SSRSourceServer SSRSource = iota
	SSRSourceHybrid
	SSRSourceInitial
	SSRSourceClient
)

// CreateSignal creates a plain signal under the current owner (via
// owner.CreateOwner, solely to obtain a deterministic id — the signal
// itself does not own children).
func CreateSignal[T any](initial T, opts ...Option[T]) *Signal[T] {
	o := owner.CreateOwner()
	eq := defaultEquals[T]
	if len(opts) > 0 && opts[0].Equals != nil {
		eq = opts[0].Equals
	}
	return &Signal[T]{id: o.ID(), value: initial, equal: eq, subs: make(map[Listener]struct{})}
}

// ID returns the signal's owner-tree id, the key under which its value is
// (if ssrSource calls for it) serialized.
func (s *Signal[T]) ID() string { return s.id }

// Get reads the value, subscribing the current listener (if any).
func (s *Signal[T]) Get() T {
	if l := currentListener(); l != nil {
		s.subsMu.Lock()
		s.subs[l] = struct{}{}
		s.subsMu.Unlock()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Peek reads the value without subscribing anything.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores a new value and notifies subscribers if it differs under the
// signal's equality function.
func (s *Signal[T]) Set(v T) {
	s.mu.Lock()
	changed := !s.equal(s.value, v)
	s.value = v
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Update applies fn to the current value and stores the result, with the
// same change-detection semantics as Set.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	next := fn(s.value)
	changed := !s.equal(s.value, next)
	s.value = next
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Signal[T]) notify() {
	s.subsMu.Lock()
	subs := make([]Listener, 0, len(s.subs))
	for l := range s.subs {
		subs = append(subs, l)
	}
	s.subsMu.Unlock()

	for _, l := range subs {
		l.MarkDirty()
	}
}

// Subscribe registers l without performing a read, for attaching a
// listener to a signal discovered indirectly rather than through a
// direct Get call.
func (s *Signal[T]) Subscribe(l Listener) {
	s.subsMu.Lock()
	s.subs[l] = struct{}{}
	s.subsMu.Unlock()
}

// Unsubscribe removes l.
func (s *Signal[T]) Unsubscribe(l Listener) {
	s.subsMu.Lock()
	delete(s.subs, l)
	s.subsMu.Unlock()
}

func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int64:
		return av == any(b).(int64)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}
