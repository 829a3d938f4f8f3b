package boundary

import (
	"sync"

	"github.com/vango-dev/hydra/pkg/template"
)

// bufferedContext wraps a HydrationContext so that Serialize calls made
// during one boundary attempt are held back rather than committed,
// preventing a superseded retry's writes from leaking into the final
// output. flush() commits the buffer to the real context; discard()
// drops it. Every other method passes through unchanged.
//
// The buffer lives behind a shared *bufferedState pointer rather than
// inline fields so that WithBoundary can hand render a boundary-scoped
// clone (its embedded HydrationContext set to the real context's own
// boundary-scoped clone) that still buffers into the same place as the
// unscoped bufferedContext Run calls flush/discard on.
type bufferedContext struct {
	template.HydrationContext

	state *bufferedState
}

type bufferedState struct {
	mu     sync.Mutex
	buffer []serializedEntry
}

type serializedEntry struct {
	id          string
	value       any
	deferStream bool
}

func newBufferedContext(real template.HydrationContext) *bufferedContext {
	return &bufferedContext{HydrationContext: real, state: &bufferedState{}}
}

// Serialize overrides the embedded context's method, buffering instead
// of writing through.
func (b *bufferedContext) Serialize(id string, value any, deferStream bool) {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	b.state.buffer = append(b.state.buffer, serializedEntry{id, value, deferStream})
}

// WithBoundary overrides the embedded context's method so the scoped
// clone keeps buffering (into the same shared state) rather than
// writing straight through to the real context.
func (b *bufferedContext) WithBoundary(boundaryID string) template.HydrationContext {
	return &bufferedContext{
		HydrationContext: b.HydrationContext.WithBoundary(boundaryID),
		state:            b.state,
	}
}

// flush commits every buffered entry to the real context, in order, and
// clears the buffer so a later reuse of this bufferedContext (there
// isn't one today, but Run constructs a fresh one per Boundary.Run call)
// starts empty.
func (b *bufferedContext) flush() {
	b.state.mu.Lock()
	entries := b.state.buffer
	b.state.buffer = nil
	b.state.mu.Unlock()

	for _, e := range entries {
		b.HydrationContext.Serialize(e.id, e.value, e.deferStream)
	}
}

// discard drops the buffer without committing it, used when a boundary
// attempt ultimately fails.
func (b *bufferedContext) discard() {
	b.state.mu.Lock()
	b.state.buffer = nil
	b.state.mu.Unlock()
}

var _ template.HydrationContext = (*bufferedContext)(nil)
