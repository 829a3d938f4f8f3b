package reactive

import (
	"testing"

	"github.com/vango-dev/hydra/pkg/owner"
)

func TestUseContextReturnsDefaultWithNoProvider(t *testing.T) {
	ctx := CreateContext("light")
	withRoot(func() {
		if got := UseContext(ctx); got != "light" {
			t.Errorf("expected default %q, got %q", "light", got)
		}
	})
}

func TestProvideScopesValueToDescendantOwners(t *testing.T) {
	ctx := CreateContext("light")
	withRoot(func() {
		ctx.Provide("dark", func() {
			child := owner.CreateOwner()
			owner.RunWithOwner(child, func() {
				if got := UseContext(ctx); got != "dark" {
					t.Errorf("expected provided %q, got %q", "dark", got)
				}
			})
		})
		if got := UseContext(ctx); got != "light" {
			t.Errorf("expected provider's scope to end with fn, got %q", got)
		}
	})
}

func TestUseContextPanicsWithoutDefaultOrProvider(t *testing.T) {
	ctx := CreateContext[string]()
	withRoot(func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected UseContext to panic with ErrContextNotFound")
			}
			if _, ok := r.(ErrContextNotFound); !ok {
				t.Fatalf("expected ErrContextNotFound, got %T", r)
			}
		}()
		UseContext(ctx)
	})
}

func TestProvidePanicsWithNoActiveOwner(t *testing.T) {
	ctx := CreateContext("light")
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected Provide to panic with ErrNoOwner")
		}
		if _, ok := r.(ErrNoOwner); !ok {
			t.Fatalf("expected ErrNoOwner, got %T", r)
		}
	}()
	ctx.Provide("dark", func() {})
}

func TestContextsWithSameTypeDoNotCollide(t *testing.T) {
	theme := CreateContext("light")
	locale := CreateContext("en")

	withRoot(func() {
		theme.Provide("dark", func() {
			locale.Provide("fr", func() {
				if got := UseContext(theme); got != "dark" {
					t.Errorf("theme: expected %q, got %q", "dark", got)
				}
				if got := UseContext(locale); got != "fr" {
					t.Errorf("locale: expected %q, got %q", "fr", got)
				}
			})
		})
	})
}
