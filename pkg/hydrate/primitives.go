package hydrate

import (
	"errors"

	"github.com/vango-dev/hydra/pkg/owner"
	"github.com/vango-dev/hydra/pkg/patch"
	"github.com/vango-dev/hydra/pkg/reactive"
)

// peekID returns the id the next primitive created under the current
// owner would receive, without consuming it. Hydration wrappers need
// this before delegating to the real constructor, so they can decide
// whether to force laziness (for memo/optimistic, skipping a real
// compute run entirely) instead of seeding after the fact.
func peekID() string {
	cur := owner.Current()
	if cur == nil {
		return ""
	}
	return cur.PeekNextChildID()
}

// HydratedSignal is createSignal's hydration-aware wrapper (spec.md
// §4.5): when not hydrating, or when no serialized record exists for the
// next id, it delegates straight to reactive.CreateSignal. When
// hydrating and a record is present, it creates the signal as usual (so
// id sequencing is identical either way) then overwrites its value from
// the serialized record instead of trusting the caller's initial.
func HydratedSignal[T any](cfg *SharedConfig, initial T, opts ...reactive.Option[T]) (get func() T, set func(T)) {
	id := peekID()
	hydrating := cfg.Hydrating() && id != "" && cfg.Has(id)

	sig := reactive.CreateSignal(initial, opts...)
	if hydrating {
		record, _ := cfg.Load(id)
		cfg.Gather(id)
		seeded, continuation := seedValue(record, initial)
		sig.Set(seeded)
		if continuation != nil {
			continuation(sig.Set)
		}
	}
	return sig.Get, sig.Set
}

// HydratedComputed is createMemo/createSignal(fn)'s hydration-aware
// wrapper. When hydrating with a record present, compute must not run at
// all — the client is adopting the server's already-computed value, not
// re-deriving it — so the backing memo is forced lazy (CreateComputedSignal
// only consults opts[0], so a caller-supplied Equals from opts[0] is
// preserved and merged into the forced-lazy option rather than appended)
// and its value is set directly from the seed.
func HydratedComputed[T any](cfg *SharedConfig, compute func(prev T) reactive.Result[T], initial T, opts ...reactive.Option[T]) (get func() T, set func(T)) {
	id := peekID()
	hydrating := cfg.Hydrating() && id != "" && cfg.Has(id)

	if !hydrating {
		return reactive.CreateComputedSignal(compute, initial, opts...)
	}

	merged := reactive.Option[T]{Lazy: true}
	if len(opts) > 0 {
		merged.Equals = opts[0].Equals
		merged.DeferStream = opts[0].DeferStream
		merged.SSRSource = opts[0].SSRSource
	}
	get, set = reactive.CreateComputedSignal(compute, initial, merged)

	record, _ := cfg.Load(id)
	cfg.Gather(id)
	seeded, continuation := seedValue(record, initial)
	set(seeded)
	if continuation != nil {
		continuation(set)
	}
	return get, set
}

// seedValue interprets a serialized record per spec.md §4.5's dispatch:
// an async-iterable is consumed once synchronously for the seed value,
// with the remaining yields driven by the returned continuation; a
// settled Promise-like uses its value (or falls back on error); a raw
// value is used directly with no continuation.
func seedValue[T any](record any, fallback T) (value T, continuation func(set func(T))) {
	switch v := record.(type) {
	case reactive.AsyncIterable[T]:
		first, ok, err := v.Next()
		if err != nil || !ok {
			return fallback, nil
		}
		return first, func(set func(T)) {
			go func() {
				for {
					next, ok, err := v.Next()
					if err != nil || !ok {
						return
					}
					set(next)
				}
			}()
		}
	case *reactive.Promise[T]:
		if v.Settled() {
			if v.Err() != nil {
				return fallback, nil
			}
			return v.Value(), nil
		}
		return fallback, func(set func(T)) {
			v.Then(func() {
				if v.Err() == nil {
					set(v.Value())
				}
			})
		}
	case T:
		return v, nil
	default:
		return fallback, nil
	}
}

// HydratedErrorBoundary is createErrorBoundary's hydration-aware wrapper:
// if the boundary's owner id has a serialized error, the boundary starts
// already-errored (a throw-once seed) so its first Run shows the same
// fallback the server emitted, without re-executing fn; reset afterward
// behaves exactly as an unhydrated boundary's would.
func HydratedErrorBoundary[T any](cfg *SharedConfig, fn func() T, fallback func(err error, reset func()) T) *reactive.ErrorBoundary[T] {
	id := peekID()
	b := reactive.CreateErrorBoundary(fn, fallback, nil)

	if cfg.Hydrating() && id != "" && cfg.Has(id) {
		record, _ := cfg.Load(id)
		cfg.Gather(id)
		if msg, ok := record.(string); ok {
			b.SeedError(errors.New(msg))
		}
	}
	return b
}

// HydratedProjection seeds a client-side projection's state from a
// serialized record whose first value is the V1 snapshot (a
// map[string]any) and whose later async-iterable yields are patch
// batches applied against the held state via patch.Apply (spec.md §4.5's
// store/projection case — "subsequent async-iterable yields are patch
// batches"). Every listener registered through onPatch is called once per
// arriving batch with the already-mutated state.
func HydratedProjection(cfg *SharedConfig, initial map[string]any) (state func() map[string]any, onPatch func(fn func(map[string]any))) {
	id := peekID()
	current := cloneTree(initial)
	var listeners []func(map[string]any)

	notify := func() {
		snapshot := current
		for _, fn := range listeners {
			fn(snapshot)
		}
	}

	if cfg.Hydrating() && id != "" && cfg.Has(id) {
		record, _ := cfg.Load(id)
		cfg.Gather(id)
		if stream, ok := record.(reactive.AsyncIterable[any]); ok {
			if v1, ok, err := stream.Next(); err == nil && ok {
				if snapshot, ok := v1.(map[string]any); ok {
					current = snapshot
				}
			}
			go func() {
				for {
					next, ok, err := stream.Next()
					if err != nil || !ok {
						return
					}
					if batch, ok := next.(patch.Batch); ok {
						patch.Apply(current, batch)
						notify()
					}
				}
			}()
		} else if snapshot, ok := record.(map[string]any); ok {
			current = snapshot
		}
	}

	return func() map[string]any { return current },
		func(fn func(map[string]any)) { listeners = append(listeners, fn) }
}

func cloneTree(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
