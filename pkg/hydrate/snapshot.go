package hydrate

import (
	"sync"

	"github.com/vango-dev/hydra/pkg/owner"
)

// The snapshot scope lets signal writes during hydration be safe: writes
// update the real value, but a computation created under a marked scope
// reads the value its signals had at the first read of the hydration
// walk, guaranteeing its output matches the server HTML it is adopting.
// Only reads made through SnapshotRead are snapshot reads: the reactive
// package's Signal.Get and Memo.Get do not consult the scope.
//
// Bindings are kept per marked scope rather than per individual reading
// computation: every hydration-aware read for one scope happens within
// one synchronous walk, so a scope-wide first-read-wins table already
// gives every computation in that walk a consistent point-in-time view,
// which is what the read-stability invariant requires.
var (
	snapshotMu sync.Mutex
	captureOn  bool
	scopes     = map[*owner.Owner]bool{}
	bindings   = map[*owner.Owner]map[any]any{}
)

// SetSnapshotCapture is the global switch for the capture policy. The
// hydrating property interceptor flips this on false->true and off on
// true->false.
func SetSnapshotCapture(on bool) {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	captureOn = on
}

// MarkSnapshotScope marks o so that signal reads occurring under it (or
// any of its descendants, until the nearer-marked descendant scope, if
// any) become snapshot reads.
func MarkSnapshotScope(o *owner.Owner) {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	scopes[o] = true
}

// ReleaseSnapshotScope un-marks o and drops its recorded bindings;
// subsequent reads fall through to live values.
func ReleaseSnapshotScope(o *owner.Owner) {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	delete(scopes, o)
	delete(bindings, o)
}

// ClearSnapshots drops every marked scope and every recorded binding.
func ClearSnapshots() {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	scopes = map[*owner.Owner]bool{}
	bindings = map[*owner.Owner]map[any]any{}
}

// nearestScope walks o and its ancestors for the closest marked scope.
// Must be called with snapshotMu held.
func nearestScope(o *owner.Owner) (*owner.Owner, bool) {
	for cur := o; cur != nil; cur = cur.Parent() {
		if scopes[cur] {
			return cur, true
		}
	}
	return nil, false
}

// SnapshotRead reads a value through the current owner's snapshot scope,
// if any: the first call for a given key within the owning scope's
// lifetime calls live() and records the result; every later call (by any
// computation under that scope) returns the recorded value, regardless
// of intervening writes. Outside a marked scope, or with capture off,
// it simply calls live().
func SnapshotRead[T any](key any, live func() T) T {
	cur := owner.Current()
	if cur == nil {
		return live()
	}

	snapshotMu.Lock()
	if !captureOn {
		snapshotMu.Unlock()
		return live()
	}
	scope, ok := nearestScope(cur)
	if !ok {
		snapshotMu.Unlock()
		return live()
	}
	scopeBindings, exists := bindings[scope]
	if !exists {
		scopeBindings = map[any]any{}
		bindings[scope] = scopeBindings
	}
	if v, ok := scopeBindings[key]; ok {
		snapshotMu.Unlock()
		return v.(T)
	}
	snapshotMu.Unlock()

	v := live()

	snapshotMu.Lock()
	// Re-check: another goroutine (unlikely on the server, routine on a
	// client with concurrent hydration walks) may have recorded first.
	if scopeBindings, exists := bindings[scope]; exists {
		if existing, ok := scopeBindings[key]; ok {
			snapshotMu.Unlock()
			return existing.(T)
		}
		scopeBindings[key] = v
	}
	snapshotMu.Unlock()
	return v
}
