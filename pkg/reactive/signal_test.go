package reactive

import (
	"testing"

	"github.com/vango-dev/hydra/pkg/owner"
)

type testListener struct {
	dirty int
}

func (l *testListener) MarkDirty() { l.dirty++ }

func withRoot(fn func()) {
	owner.RunWithOwner(owner.NewRoot("r"), fn)
}

func TestSignalGetSet(t *testing.T) {
	withRoot(func() {
		s := CreateSignal(0)
		if s.Get() != 0 {
			t.Errorf("expected 0, got %d", s.Get())
		}
		s.Set(5)
		if s.Get() != 5 {
			t.Errorf("expected 5, got %d", s.Get())
		}
	})
}

func TestSignalNotifiesOnChange(t *testing.T) {
	withRoot(func() {
		s := CreateSignal(0)
		l := &testListener{}
		WithListener(l, func() { _ = s.Get() })

		s.Set(1)
		if l.dirty != 1 {
			t.Errorf("expected 1 notification, got %d", l.dirty)
		}
		s.Set(1)
		if l.dirty != 1 {
			t.Errorf("same value should not notify, got %d", l.dirty)
		}
	})
}

func TestSignalPeekDoesNotSubscribe(t *testing.T) {
	withRoot(func() {
		s := CreateSignal(42)
		l := &testListener{}
		WithListener(l, func() { _ = s.Peek() })

		s.Set(100)
		if l.dirty != 0 {
			t.Errorf("Peek should not subscribe, got %d notifications", l.dirty)
		}
	})
}

func TestIDsAreDeterministicAcrossOwnerReExecution(t *testing.T) {
	root := owner.NewRoot("r")
	run := func() []string {
		var ids []string
		owner.RunWithOwner(root, func() {
			for i := 0; i < 3; i++ {
				ids = append(ids, CreateSignal(0).ID())
			}
		})
		return ids
	}
	first := run()
	root.Dispose(true)
	second := run()

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("id %d diverged: %q vs %q", i, first[i], second[i])
		}
	}
}
