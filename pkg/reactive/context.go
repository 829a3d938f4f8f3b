package reactive

import "github.com/vango-dev/hydra/pkg/owner"

// Context is a typed dependency-injection slot, created with
// CreateContext and read with UseContext (spec.md's public primitive
// surface, §4). It carries no state of its own; values live in the
// owner tree's context map (pkg/owner.Owner.SetContext/GetContext), so
// Provide scopes a value to the owner it is called under plus that
// owner's descendants, for the duration of its fn.
type Context[T any] struct {
	key        *contextKey[T]
	hasDefault bool
	defaultVal T
}

// contextKey is allocated once per Context[T] instance and its pointer
// is used as the owner context map key, so two contexts of the same T
// never collide. It has a non-zero size because pointers to distinct
// zero-size values may compare equal.
type contextKey[T any] struct{ _ byte }

// CreateContext creates a new context. defaultValue is optional: with
// one supplied, UseContext falls back to it when no provider is found;
// with none, UseContext panics with ErrContextNotFound instead.
func CreateContext[T any](defaultValue ...T) *Context[T] {
	c := &Context[T]{key: &contextKey[T]{}}
	if len(defaultValue) > 0 {
		c.hasDefault = true
		c.defaultVal = defaultValue[0]
	}
	return c
}

// Provide installs value for ctx on the current owner, then runs fn.
// Descendant owners created while fn runs see value via UseContext,
// through GetContext's ancestor walk. When fn returns (or panics), the
// value the owner resolved for ctx before the call is put back; if there
// was none, a nil entry is left, which UseContext treats as no provider.
// Panics with ErrNoOwner if no owner is active.
func (c *Context[T]) Provide(value T, fn func()) {
	o := owner.Current()
	if o == nil {
		panic(ErrNoOwner{})
	}
	prev, hadPrev := o.GetContext(c.key)
	o.SetContext(c.key, value)
	defer func() {
		if hadPrev {
			o.SetContext(c.key, prev)
		} else {
			o.SetContext(c.key, nil)
		}
	}()
	fn()
}

// UseContext retrieves the nearest provided value for ctx, walking from
// the current owner up through its ancestors, and falls back to ctx's
// default if no provider was found. With no default and no provider (or
// no active owner) it panics with ErrContextNotFound, per spec.md §7.
func UseContext[T any](ctx *Context[T]) T {
	if o := owner.Current(); o != nil {
		if v, ok := o.GetContext(ctx.key); ok {
			if typed, ok := v.(T); ok {
				return typed
			}
		}
	}
	if ctx.hasDefault {
		return ctx.defaultVal
	}
	panic(ErrContextNotFound{Key: ctx.key})
}
