package hydrate

import (
	"context"

	"github.com/vango-dev/hydra/pkg/owner"
	"github.com/vango-dev/hydra/pkg/reactive"
	"github.com/vango-dev/hydra/pkg/template"
)

// AssetPreloader kicks off preloads for a Loading boundary's discovered
// module/stylesheet URLs (the "<id>_assets" side-channel entry).
type AssetPreloader interface {
	Preload(ctx context.Context, urls []string)
}

// LoadBoundary is the client counterpart of pkg/boundary.Boundary
// (spec.md §4.7). Evaluated during hydration, it discovers the
// boundary's per-boundary assets, adopts whatever fragment reference the
// server serialized at its owner id, and either renders immediately (a
// settled reference, or a deferred "$$f" fallback) or defers until the
// reference settles — at which point it reruns children under its own
// snapshot scope and reports the result via onReady.
//
// A transport with a real DOM and effect scheduler drives its own
// re-render off onReady; this type models the state machine (asset
// preload kickoff, pending latch, orphan cleanup, scope mark/release,
// pending-counter draining) rather than a VDOM diff/patch cycle, which
// belongs to that transport.
type LoadBoundary[T any] struct {
	id        string
	cfg       *SharedConfig
	owner     *owner.Owner
	preloader AssetPreloader
}

// NewLoadBoundary creates a boundary scoped to a fresh child of the
// current owner.
func NewLoadBoundary[T any](cfg *SharedConfig, preloader AssetPreloader) *LoadBoundary[T] {
	o := owner.CreateOwner()
	return &LoadBoundary[T]{id: o.ID(), cfg: cfg, owner: o, preloader: preloader}
}

// ID returns the boundary owner's id.
func (b *LoadBoundary[T]) ID() string { return b.id }

// Run evaluates the boundary. If not hydrating, or no serialized
// reference exists for its id, it falls straight through to
// reactive.CreateLoadBoundary. Otherwise:
//
//   - a settled reference (or any non-Pending record) reruns children
//     under the boundary's own snapshot scope and returns the result
//     directly;
//   - "$$f" (deferred fallback) returns fallback and releases the
//     boundary's hold on the pending counter on the next scheduling
//     point, mirroring a queued microtask;
//   - a still-pending reference registers an orphan-cleanup (cancelling
//     the streaming fragment if this boundary is disposed before
//     resumption) and defers: onReady is invoked once, from whatever
//     goroutine observes settlement, with the rerun result.
func (b *LoadBoundary[T]) Run(ctx context.Context, children func() T, fallback T, onReady func(T)) T {
	if !b.cfg.Hydrating() || !b.cfg.Has(b.id) {
		return reactive.CreateLoadBoundary(children, fallback)
	}

	if b.preloader != nil {
		if assets, ok := b.cfg.Load(b.id + "_assets"); ok {
			if urls, ok := assets.([]string); ok && len(urls) > 0 {
				go b.preloader.Preload(ctx, urls)
			}
		}
	}

	record, _ := b.cfg.Load(b.id)
	b.cfg.Gather(b.id)

	if s, ok := record.(string); ok && s == "$$f" {
		b.cfg.BeginBoundary()
		go b.cfg.EndBoundary()
		return fallback
	}

	pending, isPending := record.(template.Pending)
	if !isPending || pending.Settled() {
		return b.resolve(children)
	}

	b.cfg.BeginBoundary()
	b.owner.OnCleanup(func() {
		b.cfg.CleanupFragment(b.id)
	})
	pending.Then(func() {
		result := b.resolve(children)
		if onReady != nil {
			onReady(result)
		}
		b.cfg.EndBoundary()
	})
	return fallback
}

// resolve reruns children under the boundary's own owner, bracketed by a
// local snapshot scope: hydration-aware primitives inside children read
// consistent, point-in-time values even though this boundary may be
// resolving well after the top-level hydration walk released its own
// scope.
func (b *LoadBoundary[T]) resolve(children func() T) (result T) {
	MarkSnapshotScope(b.owner)
	owner.RunWithOwner(b.owner, func() { result = children() })
	ReleaseSnapshotScope(b.owner)
	return result
}
