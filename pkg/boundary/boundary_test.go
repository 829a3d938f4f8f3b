package boundary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/hydra/pkg/owner"
	"github.com/vango-dev/hydra/pkg/template"
)

type testPending struct {
	settled bool
	thens   []func()
}

func newTestPending() *testPending { return &testPending{} }

func (p *testPending) Settled() bool { return p.settled }

func (p *testPending) Then(fn func()) {
	if p.settled {
		fn()
		return
	}
	p.thens = append(p.thens, fn)
}

func (p *testPending) settle() {
	p.settled = true
	thens := p.thens
	p.thens = nil
	for _, fn := range thens {
		fn()
	}
}

func TestRunSyncSuccessFlushesImmediately(t *testing.T) {
	root := owner.NewRoot("0")
	ctx := template.NewDefaultContext("0", true, false)
	b := New(root, ctx, "<fallback/>")

	html, err := b.Run(context.Background(), func(c template.HydrationContext) (template.Object, error) {
		c.Serialize("x", "v", false)
		return template.Object{T: []string{"<div>hi</div>"}}, nil
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if html != "<div>hi</div>" {
		t.Fatalf("got %q", html)
	}
	if ctx.Serialized()["x"] != "v" {
		t.Fatalf("expected buffered serialize to flush through on success")
	}
}

func TestRunSyncFallbackEmitsMarker(t *testing.T) {
	root := owner.NewRoot("0")
	ctx := template.NewDefaultContext("0", false, false) // Async() == false
	b := New(root, ctx, "<fallback/>")

	pending := newTestPending()
	hole := template.Hole(func() (template.Object, error) {
		panic(&fakeNotReady{pending})
	})

	html, err := b.Run(context.Background(), func(c template.HydrationContext) (template.Object, error) {
		return c.SSR([]string{"<p>", "</p>"}, hole)
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if html != "<fallback/>" {
		t.Fatalf("got %q", html)
	}
	if ctx.Serialized()[b.id] != "$$f" {
		t.Fatalf("expected $$f sentinel, got %v", ctx.Serialized()[b.id])
	}
}

func TestRunAsyncResolvesFragmentAfterSettlement(t *testing.T) {
	root := owner.NewRoot("0")
	ctx := template.NewDefaultContext("0", true, false) // Async() == true

	pending := newTestPending()
	hole := template.Hole(func() (template.Object, error) {
		if !pending.settled {
			panic(&fakeNotReady{pending})
		}
		return template.Object{T: []string{"resolved"}}, nil
	})

	b := New(root, ctx, "<fallback/>")

	html, err := b.Run(context.Background(), func(c template.HydrationContext) (template.Object, error) {
		return c.SSR([]string{"<p>", "</p>"}, hole)
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(html, "pl-"+b.id) {
		t.Fatalf("expected placeholder markers, got %q", html)
	}

	// RegisterFragment runs synchronously inside Run, before the
	// re-resolution goroutine starts, so the fragment slot exists by the
	// time Run returns and this registration is race-free.
	var gotHTML string
	var gotErr error
	doneCh := make(chan struct{})
	ctx.OnFragmentDone(b.id, func(html string, err error) {
		gotHTML, gotErr = html, err
		close(doneCh)
	})

	pending.settle()

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("fragment never settled")
	}

	if gotErr != nil {
		t.Fatalf("unexpected fragment error: %v", gotErr)
	}
	if gotHTML != "<p>resolved</p>" {
		t.Fatalf("got %q", gotHTML)
	}
}

func TestRunAttributesRegisteredModulesToItsOwnBoundary(t *testing.T) {
	root := owner.NewRoot("0")
	ctx := template.NewDefaultContext("0", true, false)
	b := New(root, ctx, "<fallback/>")

	html, err := b.Run(context.Background(), func(c template.HydrationContext) (template.Object, error) {
		c.RegisterModule("/chunk-a.js")
		return template.Object{T: []string{"<div>hi</div>"}}, nil
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if html != "<div>hi</div>" {
		t.Fatalf("got %q", html)
	}

	assets, ok := ctx.Serialized()[b.id+"_assets"].([]string)
	if !ok || len(assets) != 1 || assets[0] != "/chunk-a.js" {
		t.Fatalf("expected module registered during render to be attributed to this boundary, got %v", ctx.Serialized()[b.id+"_assets"])
	}
}

func TestRunPropagatesNonSuspensionError(t *testing.T) {
	root := owner.NewRoot("0")
	ctx := template.NewDefaultContext("0", false, false)
	b := New(root, ctx, "<fallback/>")

	_, err := b.Run(context.Background(), func(c template.HydrationContext) (template.Object, error) {
		return template.Object{}, errors.New("boom")
	})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom error, got %v", err)
	}
}

// fakeNotReady is the package-local stand-in for *reactive.NotReadyError,
// exercising the pendingCarrier panic-recovery hook without importing
// pkg/reactive (which itself imports pkg/template, and must not import
// pkg/boundary back).
type fakeNotReady struct{ p template.Pending }

func (e *fakeNotReady) Error() string                  { return "not ready" }
func (e *fakeNotReady) PendingSource() template.Pending { return e.p }
