package owner

import "testing"

func TestCreateChildIDsAreSequential(t *testing.T) {
	root := NewRoot("r")
	a := root.CreateChild()
	b := root.CreateChild()
	c := root.CreateChild()

	if a.ID() != "r0" || b.ID() != "r1" || c.ID() != "r2" {
		t.Errorf("got ids %q %q %q, want r0 r1 r2", a.ID(), b.ID(), c.ID())
	}
}

func TestDisposeResetsChildCounterForIDDeterminism(t *testing.T) {
	root := NewRoot("r")

	run := func() []string {
		var ids []string
		for i := 0; i < 3; i++ {
			ids = append(ids, root.CreateChild().ID())
		}
		return ids
	}

	first := run()
	root.Dispose(true) // keepAlive: re-execute root's body again
	second := run()

	if len(first) != len(second) {
		t.Fatalf("length mismatch: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("id %d diverged: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestGetNextChildIDConsumesSlot(t *testing.T) {
	root := NewRoot("r")
	first := root.GetNextChildID()
	second := root.PeekNextChildID()
	third := root.GetNextChildID()

	if first != "r0" {
		t.Errorf("first = %q, want r0", first)
	}
	if second != "r1" {
		t.Errorf("peek = %q, want r1 (unconsumed)", second)
	}
	if third != "r1" {
		t.Errorf("third = %q, want r1", third)
	}
}

func TestOnCleanupRunsLIFO(t *testing.T) {
	root := NewRoot("r")
	var order []int
	root.OnCleanup(func() { order = append(order, 1) })
	root.OnCleanup(func() { order = append(order, 2) })
	root.OnCleanup(func() { order = append(order, 3) })

	root.Dispose(false)

	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestOnCleanupRunsImmediatelyIfAlreadyDisposed(t *testing.T) {
	root := NewRoot("r")
	root.Dispose(false)

	ran := false
	root.OnCleanup(func() { ran = true })

	if !ran {
		t.Error("OnCleanup on a disposed owner should run immediately")
	}
}

func TestContextLookupWalksParents(t *testing.T) {
	root := NewRoot("r")
	child := root.CreateChild()
	grandchild := child.CreateChild()

	type key struct{}
	root.SetContext(key{}, "root-value")

	v, ok := grandchild.GetContext(key{})
	if !ok || v != "root-value" {
		t.Errorf("GetContext = %v, %v, want root-value, true", v, ok)
	}

	child.SetContext(key{}, "child-value")
	v, ok = grandchild.GetContext(key{})
	if !ok || v != "child-value" {
		t.Errorf("nearest ancestor should win: got %v, %v", v, ok)
	}
}

func TestDisposeChildrenInReverseOrder(t *testing.T) {
	root := NewRoot("r")
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		child := root.CreateChild()
		child.OnCleanup(func() { order = append(order, i) })
	}

	root.Dispose(false)

	want := []int{2, 1, 0}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestRunWithOwnerRestoresPrevious(t *testing.T) {
	outer := NewRoot("outer")
	inner := NewRoot("inner")

	RunWithOwner(outer, func() {
		if Current() != outer {
			t.Fatal("expected outer to be current")
		}
		RunWithOwner(inner, func() {
			if Current() != inner {
				t.Fatal("expected inner to be current")
			}
		})
		if Current() != outer {
			t.Error("expected outer restored after inner scope")
		}
	})

	if Current() != nil {
		t.Error("expected no current owner after outermost scope exits")
	}
}

func TestRunWithOwnerRestoresOnPanic(t *testing.T) {
	outer := NewRoot("outer")
	inner := NewRoot("inner")

	RunWithOwner(outer, func() {
		func() {
			defer func() { _ = recover() }()
			RunWithOwner(inner, func() {
				panic("boom")
			})
		}()
		if Current() != outer {
			t.Error("expected outer restored even after inner panicked")
		}
	})
}
