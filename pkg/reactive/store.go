package reactive

import (
	"sync"

	"github.com/vango-dev/hydra/pkg/owner"
	"github.com/vango-dev/hydra/pkg/patch"
)

// Generator is the handle a projection's body mutates the draft through.
// It stands in for the JS async-generator body's direct property
// assignment on its draft argument (spec.md §4.2's createProjection,
// E4): each mutating call records a patch, and Yield flushes the batch
// accumulated since the previous Yield (or, for the very first Yield,
// marks that the projection has reached its V1 snapshot).
type Generator struct {
	root  map[string]any
	draft *patch.Draft
	yield chan patch.Batch
}

func (g *Generator) Set(path []any, value any) { g.draft.SetAt(g.root, path, value) }
func (g *Generator) Delete(path []any)         { g.draft.DeleteAt(g.root, path) }
func (g *Generator) Splice(path []any, start, del int, ins ...any) {
	g.draft.Splice(g.root, path, start, del, ins...)
}
func (g *Generator) Push(path []any, value any) { g.draft.Push(g.root, path, value) }
func (g *Generator) Pop(path []any)             { g.draft.Pop(g.root, path) }
func (g *Generator) Shift(path []any)           { g.draft.Shift(g.root, path) }
func (g *Generator) Unshift(path []any, items ...any) {
	g.draft.Unshift(g.root, path, items...)
}

// Yield hands the patches recorded since the last Yield (or since start,
// for the first Yield) to the projection's consumer.
func (g *Generator) Yield() {
	g.yield <- g.draft.Take()
}

// GeneratorFunc is a projection body: async function*(draft){ ...; yield;
// ...; yield; } translated to a plain function taking a Generator.
type GeneratorFunc func(g *Generator)

// Projection is a store whose mutations are captured via the deep patch
// proxy stand-in (pkg/patch) and whose generator yields patch batches
// over time, per spec.md §3/§4.2.
type Projection struct {
	id    string
	owner *owner.Owner

	mu          sync.RWMutex
	state       map[string]any // V1 snapshot, deep-cloned at lock time
	initialized bool
	err         error

	firstBatch patch.Batch // the patches composing the yet-unlocked V1
	batches    []patch.Batch

	subsMu sync.Mutex
	subs   map[Listener]struct{}
}

// CreateProjection runs fn in its own goroutine against a deep copy of
// initial, locking the V1 snapshot at the first Yield (deep-cloned so
// later mutations in the goroutine cannot leak into what SSR already
// read) and recording every later Yield's batch for the side channel.
func CreateProjection(fn GeneratorFunc, initial map[string]any) *Projection {
	o := owner.CreateOwner()
	p := &Projection{
		id:    o.ID(),
		owner: o,
		state: deepCloneMap(initial),
		subs:  make(map[Listener]struct{}),
	}

	base := deepCloneMap(initial)
	root := deepCloneMap(initial)
	yieldCh := make(chan patch.Batch)
	done := make(chan struct{})

	go func() {
		defer close(done)
		g := &Generator{root: root, draft: patch.NewDraft(), yield: yieldCh}
		fn(g)
	}()

	go func() {
		first := true
		for {
			select {
			case batch, ok := <-yieldCh:
				if !ok {
					return
				}
				if first {
					first = false
					// V1 is rebuilt from the first batch rather than cloned
					// from root: once the send completes, the generator
					// goroutine is already mutating root again.
					v1 := deepCloneMap(base)
					patch.Apply(v1, batch)
					p.mu.Lock()
					p.state = deepCloneMap(v1)
					p.initialized = true
					p.mu.Unlock()
					p.notify()
					continue
				}
				p.mu.Lock()
				p.batches = append(p.batches, batch)
				p.mu.Unlock()
				p.notify()
			case <-done:
				close(yieldCh)
				return
			}
		}
	}()

	return p
}

// ID returns the projection's owner-tree id.
func (p *Projection) ID() string { return p.id }

// State returns the locked V1 snapshot (or the initial value, before the
// first Yield) subscribing the current listener. SSR reads always see
// V1, per spec.md §4.2.
func (p *Projection) State() map[string]any {
	if l := currentListener(); l != nil {
		p.subsMu.Lock()
		p.subs[l] = struct{}{}
		p.subsMu.Unlock()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Batches returns the patch batches recorded after V1, in yield order —
// the side channel's payload for this projection after its initial
// serialization.
func (p *Projection) Batches() []patch.Batch {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]patch.Batch(nil), p.batches...)
}

func (p *Projection) notify() {
	p.subsMu.Lock()
	subs := make([]Listener, 0, len(p.subs))
	for l := range p.subs {
		subs = append(subs, l)
	}
	p.subsMu.Unlock()
	for _, l := range subs {
		l.MarkDirty()
	}
}

func deepCloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCloneValue(v)
	}
	return out
}

func deepCloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Store is the non-generator form of createStore: a plain mutable value
// plus a setter that runs a callback against it directly (no patch
// recording — spec.md §4.2's "if a plain object, return (state, setter)
// where setter runs its callback against mutable state").
type Store struct {
	mu    sync.RWMutex
	value map[string]any
}

// CreateStore delegates to CreateProjection if fn is non-nil; otherwise
// it wraps initial directly as a plain mutable store.
func CreateStore(fn GeneratorFunc, initial map[string]any) any {
	if fn != nil {
		return CreateProjection(fn, initial)
	}
	return NewPlainStore(initial)
}

// NewPlainStore wraps initial as a (state, setter) pair.
func NewPlainStore(initial map[string]any) *Store {
	return &Store{value: deepCloneMap(initial)}
}

// State returns the current mutable state.
func (s *Store) State() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set runs mutate against the store's mutable state under a write lock.
func (s *Store) Set(mutate func(state map[string]any)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(s.value)
}
