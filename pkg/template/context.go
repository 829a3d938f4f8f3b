// Package template defines the HydrationContext contract the reactive
// core consumes from (and exposes back to) the DOM template resolver,
// and ships one concrete implementation exercising that contract end to
// end. The real resolver — the compile-time JSX-equivalent transform and
// its runtime companion — is an external collaborator per spec.md §1;
// DefaultContext here is a reference stand-in, not that resolver.
package template

import "context"

// Hole is a captured re-execution point: a function whose evaluation
// threw *reactive.NotReadyError, kept around so the Loading boundary can
// re-invoke it once its dependency settles.
type Hole func() (Object, error)

// Object is the SSRTemplateObject: {t, h, p} from spec.md §3. T.length ==
// len(H)+1 whenever holes exist; an Object with no holes and no pending
// promises is a finished HTML string in T[0].
type Object struct {
	T []string
	H []Hole
	P []Pending
}

// Pending is the subset of P's entries a Loading boundary actually waits
// on: anything with Settled/Then, satisfied by *reactive.Promise[T] for
// any T without this package importing reactive generically over T.
type Pending interface {
	Settled() bool
	Then(fn func())
}

// HydrationContext is the interface the core consumes from the template
// resolver and exposes back to reactive primitives, per spec.md §6.1.
type HydrationContext interface {
	// ID and Count identify the current rendering scope.
	ID() string
	Count() int

	// Resolve turns any value into template form, capturing a thrown
	// NotReadyError as a Hole rather than propagating it.
	Resolve(value any) (Object, error)

	// SSR interpolates strings and values, recursing via Resolve.
	SSR(strings []string, values ...any) (Object, error)

	// Escape HTML-escapes value for text content, or for an attribute
	// value when attr is true.
	Escape(value string, attr bool) string

	// Serialize emits a side-channel entry keyed by id. deferStream hints
	// that streaming should be deferred for this entry specifically.
	Serialize(id string, value any, deferStream bool)

	// Block gates sync rendering at the root level on p (used by lazy
	// module loading); Loading boundaries never call this.
	Block(p Pending)

	// RegisterFragment reserves a streaming slot for id and returns the
	// settle-once callback: done(html, nil) on success, done("", err) on
	// failure.
	RegisterFragment(id string) func(html string, err error)

	// Async reports whether this render is streaming (true) or sync-only
	// (false).
	Async() bool

	// NoHydrate suppresses serialization — set for error boundaries in
	// non-hydrating renders.
	NoHydrate() bool

	// RegisterAsset/RegisterModule/ResolveAssets/GetBoundaryModules are
	// the asset-discovery surface for per-boundary module preload.
	RegisterAsset(assetType, url string)
	RegisterModule(spec string)
	ResolveAssets(ctx context.Context) map[string]string
	GetBoundaryModules(boundaryID string) []string

	// CurrentBoundaryID is the opaque marker asset tracking uses to
	// attribute modules to the innermost Loading boundary.
	CurrentBoundaryID() string

	// WithBoundary returns a context scoped to boundaryID, installed for
	// the duration of rendering a Loading boundary's children so that
	// RegisterAsset/RegisterModule attribute to the innermost boundary
	// (spec.md §6.1, "_currentBoundaryId").
	WithBoundary(boundaryID string) HydrationContext
}
