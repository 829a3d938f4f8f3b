package reactive

import (
	"sync"

	"github.com/vango-dev/hydra/pkg/owner"
)

// Memo is a record {owner, value, compute, error, computed} with a single
// observer slot — the computation itself — for detecting suspension, per
// spec.md §3. It is eager by default: recompute runs immediately at
// creation. Option.Lazy skips that creation-time run, and Get does not
// run compute either: a lazy memo holds its initial value (or a value
// written through CreateComputedSignal's setter) until MarkDirty runs it.
type Memo[T any] struct {
	id    string
	owner *owner.Owner

	mu          sync.Mutex
	value       T
	err         error
	initialized bool
	computing   bool

	compute func(prev T) Result[T]
	mode    StreamMode
	equal   func(a, b T) bool

	subsMu sync.Mutex
	subs   map[Listener]struct{}
}

// CreateMemo creates a memo under the current owner. compute is re-run
// under the memo's own owner (so any nested primitives it creates get a
// stable id sequence of their own) with the memo installed as the current
// listener, so reads of other signals/memos subscribe it.
func CreateMemo[T any](compute func(prev T) Result[T], initial T, opts ...Option[T]) *Memo[T] {
	o := owner.CreateOwner()
	eq := defaultEquals[T]
	mode := StreamModeServer
	lazy := false
	if len(opts) > 0 {
		if opts[0].Equals != nil {
			eq = opts[0].Equals
		}
		lazy = opts[0].Lazy
	}
	m := &Memo[T]{
		id:      o.ID(),
		owner:   o,
		value:   initial,
		compute: compute,
		mode:    mode,
		equal:   eq,
		subs:    make(map[Listener]struct{}),
	}
	if !lazy {
		m.update()
	}
	return m
}

// ID returns the memo's owner-tree id.
func (m *Memo[T]) ID() string { return m.id }

// MarkDirty makes the memo eligible for recompute on next read; per the
// spec's pull-based model this simply re-runs compute immediately rather
// than deferring to a scheduler pass, since the server core has none.
func (m *Memo[T]) MarkDirty() {
	m.update()
}

// update runs compute under the memo's own owner with the memo installed
// as the observer, then dispatches the result via processResult. If
// compute panics with a *NotReadyError, the retry chain attaches Then on
// the suspended source so a future settlement re-triggers update.
func (m *Memo[T]) update() {
	m.mu.Lock()
	if m.computing {
		m.mu.Unlock()
		return
	}
	m.computing = true
	prev := m.value
	m.mu.Unlock()

	var result Result[T]
	var suspended *NotReadyError
	func() {
		defer func() {
			if r := recover(); r != nil {
				if nre, ok := r.(*NotReadyError); ok {
					suspended = nre
					return
				}
				m.mu.Lock()
				m.computing = false
				m.mu.Unlock()
				panic(r)
			}
		}()
		owner.RunWithOwner(m.owner, func() {
			WithListener(m, func() {
				result = m.compute(prev)
			})
		})
	}()

	if suspended != nil {
		m.mu.Lock()
		if !m.initialized {
			m.err = suspended
		}
		m.computing = false
		m.mu.Unlock()
		chainRetry(suspended.Source, m.update)
		return
	}

	before := m.Peek()
	processResult(m, result, m.mode)
	m.mu.Lock()
	if m.err == nil {
		m.initialized = true
	}
	m.computing = false
	after := m.value
	m.mu.Unlock()

	if !m.equal(before, after) {
		m.notify()
	}
}

// chainRetry registers m.update to run once source settles. source is
// type-erased (it may be *Promise[T] for any T, or an AsyncIterable); the
// memo only needs "something I can attach a Then-like callback to".
func chainRetry(source any, retry func()) {
	type thenable interface{ Then(func()) }
	if t, ok := source.(thenable); ok {
		t.Then(retry)
	}
}

// Get reads the memo's value, subscribing the current listener. If the
// memo is suspended (NotReadyError) or otherwise errored, Get panics with
// that error — mirroring the throw-based propagation the Loading boundary
// and error boundaries are built to catch.
func (m *Memo[T]) Get() T {
	if l := currentListener(); l != nil {
		m.subsMu.Lock()
		m.subs[l] = struct{}{}
		m.subsMu.Unlock()
	}
	m.mu.Lock()
	err := m.err
	v := m.value
	m.mu.Unlock()
	if err != nil {
		panic(err)
	}
	return v
}

// Peek reads the current value without subscribing and without raising a
// pending error (used by IsPending and by the boundary's re-render path
// to inspect prior state).
func (m *Memo[T]) Peek() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

// Err returns the memo's current error (nil, *NotReadyError, or a user
// error), without panicking.
func (m *Memo[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Memo[T]) notify() {
	m.subsMu.Lock()
	subs := make([]Listener, 0, len(m.subs))
	for l := range m.subs {
		subs = append(subs, l)
	}
	m.subsMu.Unlock()
	for _, l := range subs {
		l.MarkDirty()
	}
}

// IsPending invokes fn and reports whether it suspended with
// NotReadyError (true) or completed (false), per spec.md §7. Any other
// panic propagates.
func IsPending(fn func()) (pending bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*NotReadyError); ok {
				pending = true
				return
			}
			panic(r)
		}
	}()
	fn()
	return false
}

// IsPendingOr calls fn and returns its result, or fallback if fn
// suspended with NotReadyError.
func IsPendingOr[T any](fn func() T, fallback T) (result T) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*NotReadyError); ok {
				result = fallback
				return
			}
			panic(r)
		}
	}()
	return fn()
}
