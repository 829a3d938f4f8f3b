package template

import (
	"errors"
	"testing"
)

type fakePending struct{ settled bool }

func (f fakePending) Settled() bool  { return f.settled }
func (f fakePending) Then(fn func()) { fn() }

type fakeNotReady struct{ source fakePending }

func (e *fakeNotReady) Error() string         { return "not ready" }
func (e *fakeNotReady) PendingSource() Pending { return e.source }

func TestEscapeHTMLAndAttr(t *testing.T) {
	if got := escapeHTML(`<a href="x">&'`); got != "&lt;a href=&quot;x&quot;&gt;&amp;&#39;" {
		t.Fatalf("escapeHTML = %q", got)
	}
	if got := escapeAttr("a\nb\tc"); got != "a&#10;b&#9;c" {
		t.Fatalf("escapeAttr = %q", got)
	}
}

func TestResolvePlainString(t *testing.T) {
	c := NewDefaultContext("0", false, false)
	obj, err := c.Resolve("hi")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(obj.T) != 1 || obj.T[0] != "hi" || len(obj.H) != 0 {
		t.Fatalf("got %+v", obj)
	}
}

func TestResolveHoleCapturesNotReadyError(t *testing.T) {
	c := NewDefaultContext("0", true, false)
	h := Hole(func() (Object, error) {
		panic(&fakeNotReady{source: fakePending{settled: false}})
	})
	obj, err := c.Resolve(h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(obj.H) != 1 || len(obj.P) != 1 {
		t.Fatalf("expected a captured hole, got %+v", obj)
	}
	if obj.P[0].Settled() {
		t.Fatalf("pending should report unsettled")
	}
}

func TestResolveHolePropagatesOtherPanics(t *testing.T) {
	c := NewDefaultContext("0", true, false)
	h := Hole(func() (Object, error) { panic(errors.New("boom")) })
	_, err := c.Resolve(h)
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected the hole's error to propagate as Resolve's error, got %v", err)
	}
}

func TestSSRInterpolatesFinishedValues(t *testing.T) {
	c := NewDefaultContext("0", false, false)
	obj, err := c.SSR([]string{"<p>", "</p>"}, "hello")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(obj.H) != 0 {
		t.Fatalf("expected no holes, got %+v", obj)
	}
	if obj.T[0] != "<p>hello</p>" {
		t.Fatalf("got %q", obj.T[0])
	}
}

func TestSSRKeepsHoleOpenAcrossSegments(t *testing.T) {
	c := NewDefaultContext("0", true, false)
	h := Hole(func() (Object, error) {
		panic(&fakeNotReady{source: fakePending{}})
	})
	obj, err := c.SSR([]string{"<p>", "</p>"}, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(obj.H) != 1 {
		t.Fatalf("expected one hole, got %+v", obj)
	}
	if obj.T[0] != "<p>" || obj.T[1] != "</p>" {
		t.Fatalf("got T=%v", obj.T)
	}
}

func TestSerializeSkippedWhenNoHydrate(t *testing.T) {
	c := NewDefaultContext("0", false, true)
	c.Serialize("0.1", "v", false)
	if len(c.Serialized()) != 0 {
		t.Fatalf("expected no serialized entries under NoHydrate")
	}
}

func TestRegisterFragmentSettlesOnce(t *testing.T) {
	c := NewDefaultContext("0", true, false)
	var gotHTML string
	var calls int
	c.OnFragmentDone("f1", func(html string, err error) {
		calls++
		gotHTML = html
	})
	done := c.RegisterFragment("f1")
	done("<div/>", nil)
	done("<other/>", nil) // second call must be ignored

	if calls != 1 {
		t.Fatalf("expected exactly one settlement, got %d", calls)
	}
	if gotHTML != "<div/>" {
		t.Fatalf("got %q", gotHTML)
	}
}

func TestRegisterAssetDedupesAndScopesToBoundary(t *testing.T) {
	c := NewDefaultContext("0", false, false)
	scoped := c.WithBoundary("b1")
	scoped.RegisterAsset("modulepreload", "/a.js")
	scoped.RegisterAsset("modulepreload", "/a.js") // dup, should not double-register

	mods := scoped.GetBoundaryModules("b1")
	if len(mods) != 1 || mods[0] != "/a.js" {
		t.Fatalf("got %v", mods)
	}
	if scoped.CurrentBoundaryID() != "b1" {
		t.Fatalf("boundary id not threaded through WithBoundary")
	}
	if c.CurrentBoundaryID() != "" {
		t.Fatalf("original context must be unaffected by WithBoundary")
	}
}
