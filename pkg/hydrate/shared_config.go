package hydrate

import (
	"sync"

	"github.com/vango-dev/hydra/pkg/owner"
)

// SharedConfig is the client-side hydration store: the serialized
// side-channel keyed by owner id, the hydrating/done lifecycle flags
// (property-intercepted per spec.md §6.2), and the element registry
// adoption uses to look an id back up to its DOM node.
type SharedConfig struct {
	mu sync.Mutex

	hydrating bool
	done      bool

	store    map[string]any
	gathered map[string]bool
	registry map[string]any

	onHydratingChange []func(bool)
	onHydrationEnd    []func()

	rootOwner *owner.Owner
	pending   int
}

// NewSharedConfig creates a SharedConfig seeded with the side-channel
// records the server serialized (owner id -> value).
func NewSharedConfig(serialized map[string]any) *SharedConfig {
	store := make(map[string]any, len(serialized))
	for k, v := range serialized {
		store[k] = v
	}
	return &SharedConfig{
		store:    store,
		gathered: make(map[string]bool),
		registry: make(map[string]any),
	}
}

// Hydrating reports the current hydrating flag.
func (c *SharedConfig) Hydrating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hydrating
}

// SetHydrating is the intercepted property setter: false->true turns
// snapshot capture on and remembers rootOwner as the top-level scope
// (callers pass the root owner they are about to walk under); true->
// false releases that scope, clears snapshots, and lets pending
// computations rerun with live values.
func (c *SharedConfig) SetHydrating(root *owner.Owner, v bool) {
	c.mu.Lock()
	prev := c.hydrating
	c.hydrating = v
	hooks := append([]func(bool){}, c.onHydratingChange...)
	c.mu.Unlock()

	if !prev && v {
		SetSnapshotCapture(true)
		MarkSnapshotScope(root)
		c.mu.Lock()
		c.rootOwner = root
		c.mu.Unlock()
	} else if prev && !v {
		c.mu.Lock()
		top := c.rootOwner
		c.rootOwner = nil
		c.mu.Unlock()
		if top != nil {
			ReleaseSnapshotScope(top)
		}
		ClearSnapshots()
		SetSnapshotCapture(false)
	}

	for _, fn := range hooks {
		fn(v)
	}
}

// OnHydratingChange registers a callback invoked on every SetHydrating
// transition.
func (c *SharedConfig) OnHydratingChange(fn func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHydratingChange = append(c.onHydratingChange, fn)
}

// Done reports the current done flag.
func (c *SharedConfig) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// SetDone is the intercepted setter: setting true drains every
// registered onHydrationEnd callback, once.
func (c *SharedConfig) SetDone(v bool) {
	c.mu.Lock()
	already := c.done
	c.done = v
	callbacks := c.onHydrationEnd
	if v && !already {
		c.onHydrationEnd = nil
	}
	c.mu.Unlock()

	if v && !already {
		for _, fn := range callbacks {
			fn()
		}
	}
}

// OnHydrationEnd registers fn to run exactly once, the first time Done
// transitions to true (or immediately, if it already has).
func (c *SharedConfig) OnHydrationEnd(fn func()) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		fn()
		return
	}
	c.onHydrationEnd = append(c.onHydrationEnd, fn)
	c.mu.Unlock()
}

// BeginBoundary marks one Loading boundary as still awaiting settlement,
// holding off the "all boundaries settled" transition SetDone would
// otherwise reach once the synchronous hydration walk finishes.
func (c *SharedConfig) BeginBoundary() {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()
}

// EndBoundary reports that one awaited boundary has settled. Once every
// boundary begun has ended, Done transitions to true and
// onHydrationEnd callbacks drain, per spec.md §4.7's "decrement pending
// counter; if zero, drain hydration-end callbacks."
func (c *SharedConfig) EndBoundary() {
	c.mu.Lock()
	c.pending--
	zero := c.pending <= 0
	c.mu.Unlock()
	if zero {
		c.SetDone(true)
	}
}

// Has reports whether a serialized record exists for id and has not
// already been gathered.
func (c *SharedConfig) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gathered[id] {
		return false
	}
	_, ok := c.store[id]
	return ok
}

// Load returns the serialized value for id without consuming it.
func (c *SharedConfig) Load(id string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[id]
	return v, ok
}

// Gather marks id's record as consumed: frees it for GC and makes Has
// report false for it from now on, mirroring the spec's "frees memory,
// unparks waiters" note (there are no waiters to unpark in this
// single-process port; consumption bookkeeping is what's load-bearing).
func (c *SharedConfig) Gather(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gathered[id] = true
	delete(c.store, id)
}

// CleanupFragment removes an orphaned streaming fragment's placeholder
// from the element registry (the transport owns the actual DOM removal;
// this just drops the adoption entry so a later id reuse can't find it).
func (c *SharedConfig) CleanupFragment(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.registry, "pl-"+id)
}

// RegisterElement records el under id in the adoption registry.
func (c *SharedConfig) RegisterElement(id string, el any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry[id] = el
}

// Element looks up a registered element by id.
func (c *SharedConfig) Element(id string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.registry[id]
	return v, ok
}
