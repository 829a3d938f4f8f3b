package template

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// DefaultContext is a reference HydrationContext: string-join ssr/resolve,
// the escape table in escape.go, an in-memory fragment registry, and a plain map
// for the side channel. Real deployments swap this for their own template
// resolver; this implementation exists so the reactive core is
// exercisable end to end without one.
type DefaultContext struct {
	id      string
	async   bool
	noHydr  bool
	boundID string

	mu         sync.Mutex
	serialized map[string]any
	assets     map[string]string          // assetType+url dedup set, emitted in registration order
	assetOrder []assetEntry
	modules    map[string][]string // boundaryID -> module specifiers

	fragMu    sync.Mutex
	fragments map[string]*fragment
}

type assetEntry struct {
	assetType, url string
}

type fragment struct {
	mu     sync.Mutex
	done   bool
	onDone func(html string, err error)
}

// NewDefaultContext creates a root context. async selects streaming vs
// sync-only rendering; noHydrate suppresses Serialize (used for error
// boundaries in non-hydrating renders).
func NewDefaultContext(id string, async, noHydrate bool) *DefaultContext {
	return &DefaultContext{
		id:         id,
		async:      async,
		noHydr:     noHydrate,
		serialized: make(map[string]any),
		assets:     make(map[string]string),
		modules:    make(map[string][]string),
		fragments:  make(map[string]*fragment),
	}
}

func (c *DefaultContext) ID() string  { return c.id }
func (c *DefaultContext) Count() int  { c.mu.Lock(); defer c.mu.Unlock(); return len(c.serialized) }
func (c *DefaultContext) Async() bool { return c.async }

func (c *DefaultContext) NoHydrate() bool { return c.noHydr }

func (c *DefaultContext) Escape(value string, attr bool) string {
	if attr {
		return escapeAttr(value)
	}
	return escapeHTML(value)
}

// Resolve turns a value into template form. Strings/numbers/bools become
// a finished T[0]; a Hole is invoked, and a panic of *reactive.NotReadyError
// (recovered here, so this package need not import reactive to name the
// type — it only needs "did this panic carry a Settled-reporting source")
// is captured as a re-runnable hole rather than propagated. A panic with
// any other error value is returned as Resolve's error; a panic with a
// non-error value propagates.
func (c *DefaultContext) Resolve(value any) (obj Object, err error) {
	switch v := value.(type) {
	case Object:
		return v, nil
	case Hole:
		return c.resolveHole(v)
	case func() (Object, error):
		return c.resolveHole(Hole(v))
	case string:
		return Object{T: []string{v}}, nil
	case nil:
		return Object{T: []string{""}}, nil
	default:
		return Object{T: []string{fmt.Sprint(v)}}, nil
	}
}

func (c *DefaultContext) resolveHole(h Hole) (obj Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pendingErr, ok := r.(interface{ Error() string }); ok {
				if p, ok2 := extractPending(r); ok2 {
					obj = Object{T: []string{"", ""}, H: []Hole{h}, P: []Pending{p}}
					err = nil
					return
				}
				err = fmt.Errorf("%s", pendingErr.Error())
				return
			}
			panic(r)
		}
	}()
	return h()
}

// extractPending is a narrow hook: types that carry a Pending-compatible
// Source field (reactive.NotReadyError does) can be recognized via this
// interface without this package importing pkg/reactive, keeping the
// dependency direction the right way (reactive -> template, not back).
type sourceCarrier interface {
	PendingSource() Pending
}

func extractPending(r any) (Pending, bool) {
	if sc, ok := r.(sourceCarrier); ok {
		return sc.PendingSource(), true
	}
	return nil, false
}

// SSR interpolates strings and values, recursing through Resolve and
// splicing each value's own holes/pending promises into the aggregate
// template object, mirroring a JS tagged-template evaluation.
func (c *DefaultContext) SSR(strings []string, values ...any) (Object, error) {
	if len(values) == 0 {
		return Object{T: []string{join(strings)}}, nil
	}

	out := Object{T: []string{strings[0]}}
	for i, v := range values {
		resolved, err := c.Resolve(v)
		if err != nil {
			return Object{}, err
		}
		if len(resolved.H) == 0 {
			// Finished value: fold its single T[0] into the running tail
			// segment instead of opening a new hole slot.
			tail := ""
			if len(resolved.T) > 0 {
				tail = resolved.T[0]
			}
			out.T[len(out.T)-1] += tail
		} else {
			out.H = append(out.H, resolved.H...)
			out.P = append(out.P, resolved.P...)
			out.T = append(out.T, resolved.T[1:]...)
		}
		if i+1 < len(strings) {
			out.T[len(out.T)-1] += strings[i+1]
		}
	}
	return out, nil
}

func join(strs []string) string {
	total := ""
	for _, s := range strs {
		total += s
	}
	return total
}

func (c *DefaultContext) Serialize(id string, value any, deferStream bool) {
	if c.noHydr {
		return
	}
	c.mu.Lock()
	c.serialized[id] = value
	c.mu.Unlock()
}

// Serialized returns a snapshot of the side channel, keyed by owner id —
// exposed for tests and for a transport layer to drain.
func (c *DefaultContext) Serialized() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.serialized))
	for k, v := range c.serialized {
		out[k] = v
	}
	return out
}

func (c *DefaultContext) Block(p Pending) {
	// Root-level sync gating: a real transport would suspend its write
	// loop on p; this reference context has no transport to gate, so it
	// is a no-op.
	_ = p
}

func (c *DefaultContext) RegisterFragment(id string) func(html string, err error) {
	c.fragMu.Lock()
	f, ok := c.fragments[id]
	if !ok {
		f = &fragment{}
		c.fragments[id] = f
	}
	c.fragMu.Unlock()

	return func(html string, err error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.done {
			return // fragment monotonicity: settles at most once
		}
		f.done = true
		if f.onDone != nil {
			f.onDone(html, err)
		}
	}
}

// OnFragmentDone installs a callback a test/transport can use to observe
// a fragment's settlement; it may be installed before or after
// RegisterFragment, but must be installed before RegisterFragment's
// done() is invoked.
func (c *DefaultContext) OnFragmentDone(id string, fn func(html string, err error)) {
	c.fragMu.Lock()
	defer c.fragMu.Unlock()
	f, ok := c.fragments[id]
	if !ok {
		f = &fragment{}
		c.fragments[id] = f
	}
	f.onDone = fn
}

func (c *DefaultContext) RegisterAsset(assetType, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := assetType + "|" + url
	if _, ok := c.assets[key]; ok {
		return
	}
	c.assets[key] = url
	c.assetOrder = append(c.assetOrder, assetEntry{assetType, url})
	if c.boundID != "" {
		c.modules[c.boundID] = append(c.modules[c.boundID], url)
	}
}

func (c *DefaultContext) RegisterModule(spec string) {
	c.RegisterAsset("modulepreload", spec)
}

func (c *DefaultContext) ResolveAssets(_ context.Context) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.assetOrder))
	for i, e := range c.assetOrder {
		out[strconv.Itoa(i)+":"+e.assetType] = e.url
	}
	return out
}

func (c *DefaultContext) GetBoundaryModules(boundaryID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.modules[boundaryID]...)
}

func (c *DefaultContext) CurrentBoundaryID() string { return c.boundID }

// WithBoundary returns a shallow copy of c scoped to boundaryID, the
// pattern the Loading boundary uses to install _currentBoundaryId for the
// duration of rendering its children, per spec.md §6.1.
func (c *DefaultContext) WithBoundary(boundaryID string) HydrationContext {
	clone := *c
	clone.boundID = boundaryID
	return &clone
}

var _ HydrationContext = (*DefaultContext)(nil)
