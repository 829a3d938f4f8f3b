package reactive

// Result is the sum type a compute function returns: exactly one of a
// plain Value, a Promise, or a Stream is populated. Modeling it this way
// (rather than returning `any` and type-switching on Promise/iterable
// interfaces) keeps CreateMemo's compute signature generic over T while
// still letting processResult dispatch on "what kind of result is this"
// the way spec.md §4.2's table does.
type Result[T any] struct {
	Value  T
	Promise *Promise[T]
	Stream AsyncIterable[T]
}

// Plain wraps a synchronously available value.
func Plain[T any](v T) Result[T] { return Result[T]{Value: v} }

// FromPromise wraps an in-flight or settled promise.
func FromPromise[T any](p *Promise[T]) Result[T] { return Result[T]{Promise: p} }

// FromStream wraps an async-iterable producer.
func FromStream[T any](s AsyncIterable[T]) Result[T] { return Result[T]{Stream: s} }

// StreamMode selects how an async-iterable Result is handled, per
// spec.md §4.2's Promise/async-iterable dispatch table.
type StreamMode int

const (
	// StreamModeServer eagerly starts the first Next() and exposes a
	// tapped iterable that replays V1 then forwards later yields while
	// locking Value at V1 for SSR reads.
	StreamModeServer StreamMode = iota
	// StreamModeHybrid consumes only the first Next() and treats the
	// iterable like a Promise from then on; only V1 is serialized.
	StreamModeHybrid
)

// processResult applies a Result to a memo, updating its value/error and
// returning the side-channel payload (if any) for the memo's owner id.
// Memo.update discards that payload; nothing in this package serializes
// a memo's result. This is the one place spec.md §4.2's three-way Promise/async-iterable
// dispatch table lives.
func processResult[T any](m *Memo[T], res Result[T], mode StreamMode) (sideChannel any) {
	switch {
	case res.Promise != nil:
		return processPromise(m, res.Promise)
	case res.Stream != nil:
		return processStream(m, res.Stream, mode)
	default:
		m.mu.Lock()
		m.value = res.Value
		m.err = nil
		m.mu.Unlock()
		return nil
	}
}

func processPromise[T any](m *Memo[T], p *Promise[T]) any {
	m.mu.Lock()
	initialized := m.initialized
	m.mu.Unlock()

	if p.Settled() {
		if err := p.Err(); err != nil {
			m.mu.Lock()
			m.err = err
			m.mu.Unlock()
		} else {
			m.mu.Lock()
			m.value = p.Value()
			m.err = nil
			m.initialized = true
			m.mu.Unlock()
		}
		return p
	}

	if !initialized {
		m.mu.Lock()
		m.err = &NotReadyError{Source: p}
		m.mu.Unlock()
	}

	p.Then(func() {
		if err := p.Err(); err != nil {
			m.mu.Lock()
			m.err = err
			m.mu.Unlock()
			return
		}
		m.mu.Lock()
		m.value = p.Value()
		m.err = nil
		m.initialized = true
		m.mu.Unlock()
		m.MarkDirty()
	})
	return p
}

// tappedIterable replays the first yielded value, then forwards
// subsequent Next() calls to the underlying producer, per spec.md §4.2's
// "tapped async-iterable" requirement for StreamModeServer.
type tappedIterable[T any] struct {
	first    T
	replayed bool
	inner    AsyncIterable[T]
}

func (t *tappedIterable[T]) Next() (T, bool, error) {
	if !t.replayed {
		t.replayed = true
		return t.first, true, nil
	}
	return t.inner.Next()
}

func processStream[T any](m *Memo[T], s AsyncIterable[T], mode StreamMode) any {
	v1, ok, err := s.Next()
	if err != nil {
		m.mu.Lock()
		m.err = err
		m.mu.Unlock()
		return nil
	}
	if !ok {
		return nil
	}

	m.mu.Lock()
	m.value = v1
	m.err = nil
	m.initialized = true
	m.mu.Unlock()

	if mode == StreamModeHybrid {
		// Only V1 is serialized; later yields are consumed but not
		// forwarded to the side channel — a hybrid stream behaves like a
		// settled promise from here on.
		go drainIgnoring(s)
		return Resolved(v1)
	}

	// comp.value stays locked at v1 from here on (per spec.md §4.2); the
	// tapped iterable is returned as the side-channel payload, and whoever
	// consumes it drives the further Next() calls.
	return &tappedIterable[T]{first: v1, inner: s}
}

func drainIgnoring[T any](s AsyncIterable[T]) {
	for {
		_, ok, err := s.Next()
		if err != nil || !ok {
			return
		}
	}
}
