package reactive

import (
	"github.com/vango-dev/hydra/pkg/owner"
)

// ErrorBoundary runs fn under its own owner, catching any synchronous
// error (anything other than *NotReadyError, which propagates so an
// enclosing Loading boundary can still see suspensions from inside an
// error boundary) and invoking fallback in its place.
//
// Serialize, if non-nil, is called with the boundary owner's id and the
// caught error so the client can restore the same fallback without
// re-running children (spec.md §4.2, §7).
type ErrorBoundary[T any] struct {
	id        string
	owner     *owner.Owner
	fn        func() T
	fallback  func(err error, reset func()) T
	serialize func(id string, err error)

	errored bool
	err     error
}

// CreateErrorBoundary creates a boundary whose Run method executes fn,
// falling back to fallback(err, reset) on any caught non-suspension
// error. serialize may be nil (e.g. ctx.noHydrate is set).
func CreateErrorBoundary[T any](fn func() T, fallback func(err error, reset func()) T, serialize func(id string, err error)) *ErrorBoundary[T] {
	o := owner.CreateOwner()
	return &ErrorBoundary[T]{id: o.ID(), owner: o, fn: fn, fallback: fallback, serialize: serialize}
}

// ID returns the boundary owner's id.
func (b *ErrorBoundary[T]) ID() string { return b.id }

// Run executes fn (or, if a prior Run caught an error and Reset has not
// been called since, re-invokes fallback with the same error) and
// returns its result.
func (b *ErrorBoundary[T]) Run() (result T) {
	if b.errored {
		return b.fallback(b.err, b.Reset)
	}

	var caught error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(*NotReadyError); ok {
					panic(r) // suspension is not this boundary's concern
				}
				err, ok := r.(error)
				if !ok {
					panic(r)
				}
				caught = err
			}
		}()
		owner.RunWithOwner(b.owner, func() {
			result = b.fn()
		})
	}()

	if caught != nil {
		b.errored = true
		b.err = caught
		if b.serialize != nil {
			b.serialize(b.id, caught)
		}
		return b.fallback(caught, b.Reset)
	}
	return result
}

// Reset clears the caught error so the next Run re-executes fn.
func (b *ErrorBoundary[T]) Reset() {
	b.errored = false
	b.err = nil
}

// SeedError installs err as an already-caught error, as if a prior Run
// had thrown it, without running fn. Used by client hydration (spec.md
// §4.5): a boundary that serialized an error on the server starts
// client-side in the errored state so it shows the same fallback instead
// of re-running children.
func (b *ErrorBoundary[T]) SeedError(err error) {
	b.errored = true
	b.err = err
}

// CreateLoadBoundary is the thin wrapper used when no HydrationContext is
// active (spec.md §4.2): if fn throws NotReadyError, return fallback;
// any other panic propagates; otherwise return fn's result.
func CreateLoadBoundary[T any](fn func() T, fallback T) (result T) {
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
