package reactive

import (
	"testing"
	"time"
)

// TestProjectionFullSnapshotThenPatchBatches mirrors scenario E4: a
// generator sets name then yields (V1 snapshot), appends to items then
// yields (patch batch), pushes an item then yields (patch batch).
func TestProjectionFullSnapshotThenPatchBatches(t *testing.T) {
	withRoot(func() {
		initial := map[string]any{"name": "", "items": []any{}}

		p := CreateProjection(func(g *Generator) {
			g.Set([]any{"name"}, "Alice")
			g.Yield()
			g.Set([]any{"items"}, []any{1})
			g.Yield()
			g.Push([]any{"items"}, 2)
			g.Yield()
		}, initial)

		deadline := time.Now().Add(time.Second)
		for p.State()["name"] != "Alice" && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}

		state := p.State()
		if state["name"] != "Alice" {
			t.Fatalf("V1 name = %v, want Alice", state["name"])
		}
		items, _ := state["items"].([]any)
		if len(items) != 0 {
			t.Errorf("V1 items should still be empty (locked at V1), got %v", items)
		}

		for len(p.Batches()) < 2 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		batches := p.Batches()
		if len(batches) != 2 {
			t.Fatalf("got %d batches, want 2", len(batches))
		}
	})
}
