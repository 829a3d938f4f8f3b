// Package boundary implements the server-side Loading boundary: the
// state machine that captures suspended computations as holes, resolves
// them out of order, and emits either inline HTML or a streamed
// fragment, per the Fresh -> Sync-success / Holes-present -> Done
// lifecycle.
package boundary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/hydra/pkg/owner"
	"github.com/vango-dev/hydra/pkg/telemetry"
	"github.com/vango-dev/hydra/pkg/template"
)

// Render is a boundary's component body: it runs under the boundary's
// own owner, is handed the buffered context to serialize through, and
// returns the template object for the boundary's children (or panics
// with a suspension, caught by Run's outer retry loop).
type Render func(ctx template.HydrationContext) (template.Object, error)

// Boundary is one Loading boundary instance, scoped to a single owner
// in the reactive tree.
type Boundary struct {
	id        string // the owner id, used as the fragment/placeholder id
	requestID string // process-wide-unique scope, since owner ids repeat across concurrent requests
	owner     *owner.Owner
	ctx       template.HydrationContext
	fallback  string

	tracer  *telemetry.Tracer
	metrics *telemetry.Metrics
}

// New creates a Boundary scoped to a fresh child of parent, with ctx's
// serialize calls buffered for the duration of each attempt.
func New(parent *owner.Owner, ctx template.HydrationContext, fallback string) *Boundary {
	bo := parent.CreateChild()
	return &Boundary{
		id:        bo.ID(),
		requestID: uuid.NewString(),
		owner:     bo,
		ctx:       ctx,
		fallback:  fallback,
		tracer:    telemetry.NewTracer(),
		metrics:   telemetry.GlobalMetrics(),
	}
}

// ID returns the boundary's owner id — the key its fragment is
// registered under in the HydrationContext's own registry (distinct
// from FragmentID, which namespaces it for a transport's process-wide
// registry).
func (b *Boundary) ID() string { return b.id }

// FragmentID is the process-wide-unique key a transport's fragment
// registry should use, distinct from the owner id (which is only
// unique within one render).
func (b *Boundary) FragmentID() string { return b.requestID + ":" + b.id }

// Run executes the Fresh state: render children under the boundary's
// owner, buffering serialization, and dispatches to sync-success,
// holes-present(async), or holes-present(sync) depending on the result
// and ctx.Async(). It returns the HTML to splice at the boundary's
// placement in the parent template.
func (b *Boundary) Run(parentCtx context.Context, render Render) (html string, err error) {
	start := time.Now()
	buf := newBufferedContext(b.ctx).WithBoundary(b.id).(*bufferedContext)

	obj, err := b.runWithRetry(parentCtx, buf, render, 1)
	if err != nil {
		buf.discard()
		return "", err
	}

	if len(obj.H) == 0 {
		// Sync-success.
		buf.flush()
		b.emitAssetMapping(b.ctx)
		b.metrics.RecordResolution(b.id, time.Since(start))
		return firstOr(obj.T, ""), nil
	}

	if b.ctx.Async() {
		return b.runAsync(parentCtx, buf, obj, start), nil
	}
	return b.runSyncFallback(buf), nil
}

// runWithRetry implements the component-body throw path: render may
// itself panic with a suspension (not just return holes in its Object)
// when the top-level compute — not one of its interpolated values —
// suspends. Each retry disposes the boundary owner with keepAlive=true,
// resetting its child-id counter so the re-run regenerates an identical
// id sequence, per the owner tree's determinism invariant.
func (b *Boundary) runWithRetry(parentCtx context.Context, buf *bufferedContext, render Render, attempt int) (obj template.Object, err error) {
	b.metrics.RecordAttempt(b.id)
	_, span := b.tracer.StartAttempt(parentCtx, b.id, attempt)

	var caught template.Pending
	func() {
		defer func() {
			if r := recover(); r != nil {
				if nr, ok := r.(pendingCarrier); ok {
					caught = nr.PendingSource()
					return
				}
				telemetry.EndWithError(span, fmt.Errorf("%v", r))
				panic(r)
			}
		}()
		owner.RunWithOwner(b.owner, func() {
			obj, err = render(buf)
		})
	}()

	if caught != nil {
		telemetry.EndWithError(span, nil)
		waitAll([]template.Pending{caught})
		b.owner.Dispose(true)
		return b.runWithRetry(parentCtx, buf, render, attempt+1)
	}

	telemetry.EndWithError(span, err)
	return obj, err
}

// pendingCarrier is the narrow hook a panic value (typically
// *reactive.NotReadyError) implements to expose its suspension source
// without this package importing reactive.
type pendingCarrier interface {
	PendingSource() template.Pending
}

// runAsync implements holes-present (async context): register a
// fragment, kick off the re-resolution loop in a goroutine, and return
// placeholder markers immediately.
func (b *Boundary) runAsync(parentCtx context.Context, buf *bufferedContext, obj template.Object, start time.Time) string {
	done := b.ctx.RegisterFragment(b.id)

	go func() {
		final, err := b.resolveHoles(parentCtx, buf, obj, 1)
		if err != nil {
			buf.discard()
			b.metrics.RecordResolution(b.id, time.Since(start))
			b.metrics.RecordSettlement(err)
			done("", err)
			return
		}
		buf.flush()
		b.emitAssetMapping(b.ctx)
		b.metrics.RecordResolution(b.id, time.Since(start))
		b.metrics.RecordSettlement(nil)
		done(firstOr(final.T, ""), nil)
	}()

	return fmt.Sprintf(`<template id="pl-%s"></template><!--pl-%s-->`, b.id, b.id)
}

// runSyncFallback implements holes-present (sync context): flush what
// was buffered, emit the asset mapping, serialize the "$$f" fallback
// marker, and return the static fallback HTML.
func (b *Boundary) runSyncFallback(buf *bufferedContext) string {
	buf.flush()
	b.emitAssetMapping(b.ctx)
	b.ctx.Serialize(b.id, "$$f", false)
	b.metrics.RecordFallback()
	return b.fallback
}

// resolveHoles implements the async hole re-resolution algorithm:
// await every pending promise in the current object, then re-run
// ctx.SSR with each hole re-invoked as its own interpolated value.
// Termination is guaranteed because each pass strictly decreases either
// the set of pending promises or the set of unresolved holes.
func (b *Boundary) resolveHoles(parentCtx context.Context, ctx template.HydrationContext, obj template.Object, attempt int) (template.Object, error) {
	for len(obj.P) > 0 {
		_, span := b.tracer.StartHoleResolution(parentCtx, b.id, len(obj.P))
		waitAll(obj.P)
		span.End()

		values := make([]any, len(obj.H))
		for i, h := range obj.H {
			values[i] = h
		}
		next, err := ctx.SSR(obj.T, values...)
		if err != nil {
			return template.Object{}, err
		}
		obj = next
		attempt++
	}
	return obj, nil
}

// waitAll blocks until every pending settles, via template.Pending's
// Then registration (synchronous, no event loop to schedule onto).
func waitAll(pending []template.Pending) {
	var wg sync.WaitGroup
	for _, p := range pending {
		wg.Add(1)
		p.Then(wg.Done)
	}
	wg.Wait()
}

func (b *Boundary) emitAssetMapping(ctx template.HydrationContext) {
	assets := ctx.GetBoundaryModules(b.id)
	if len(assets) == 0 {
		return
	}
	ctx.Serialize(b.id+"_assets", assets, false)
}

func firstOr(strs []string, fallback string) string {
	if len(strs) == 0 {
		return fallback
	}
	return strs[0]
}
