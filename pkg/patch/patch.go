// Package patch implements the store's deep-mutation recorder.
//
// The source this core is modeled on records store mutations through a
// recursive Proxy over the draft object. Go has no transparent proxy, so
// mutations are instead recorded through an explicit Draft builder whose
// methods emit the same PatchOp stream a proxy trap would — per the
// spec's own design notes, the downstream consumer (the serializer, the
// client-side patch interpreter) stays identical either way.
package patch

// Op identifies the shape of a PatchOp.
type Op int

const (
	// OpDelete removes the value at Path. Wire shape: [path].
	OpDelete Op = iota
	// OpSet assigns Value at Path. Wire shape: [path, value].
	OpSet
	// OpInsert inserts Value at the array index named by the last Path
	// segment, shifting later elements up. Wire shape: [path, value, 1].
	OpInsert
)

// PatchOp is one recorded mutation. Path is a key path from the draft
// root (object keys as strings, array indices as ints).
type PatchOp struct {
	Op    Op
	Path  []any
	Value any
}

// Batch is an ordered sequence of PatchOps recorded between two yields of
// a projection's generator. Order is significant for array operations:
// replaying a batch in order against a structurally-equal target must
// reproduce the same final state.
type Batch []PatchOp

// Draft records mutations against a mutable root value (typically a
// map[string]any or []any tree) and accumulates the PatchOps describing
// them. It does not itself mutate in a copy-on-write sense: callers apply
// each method to get both the recorded op and have the change reflected
// directly in the underlying value, matching how the proxy's traps both
// record and perform the write.
type Draft struct {
	batch Batch
}

// NewDraft creates an empty recorder.
func NewDraft() *Draft { return &Draft{} }

// Set records [path, value] and assumes the caller has already written
// value at path in the underlying structure (or writes it via SetAt,
// below, for map-rooted drafts).
func (d *Draft) Set(path []any, value any) {
	d.batch = append(d.batch, PatchOp{Op: OpSet, Path: append([]any(nil), path...), Value: value})
}

// Delete records [path].
func (d *Draft) Delete(path []any) {
	d.batch = append(d.batch, PatchOp{Op: OpDelete, Path: append([]any(nil), path...)})
}

// Insert records [path, value, 1]: an array insertion at the index named
// by path's last segment.
func (d *Draft) Insert(path []any, value any) {
	d.batch = append(d.batch, PatchOp{Op: OpInsert, Path: append([]any(nil), path...), Value: value})
}

// Take returns the accumulated batch and resets the draft for the next
// one (one Batch per generator yield).
func (d *Draft) Take() Batch {
	b := d.batch
	d.batch = nil
	return b
}

// SetAt sets root[path...] = value in a map[string]any / []any tree and
// records the corresponding patch. It is the convenience entry point for
// createProjection's draft mutations (d.SetAt(root, []any{"name"}, "Alice")).
func (d *Draft) SetAt(root any, path []any, value any) {
	setIn(root, path, value)
	d.Set(path, value)
}

// DeleteAt deletes root[path...] and records the corresponding patch.
func (d *Draft) DeleteAt(root any, path []any) {
	deleteIn(root, path)
	d.Delete(path)
}

// Shift removes the first element of the array at path and records a
// single delete patch at index 0 — mirroring the spec's shift
// specialization.
func (d *Draft) Shift(root any, path []any) {
	arrPath := append(append([]any(nil), path...), 0)
	d.Delete(arrPath)
	shiftIn(root, path)
}

// Unshift prepends items to the array at path, recording one insert patch
// per item in index order.
func (d *Draft) Unshift(root any, path []any, items ...any) {
	unshiftIn(root, path, items...)
	for i, item := range items {
		d.Insert(append(append([]any(nil), path...), i), item)
	}
}

// Splice removes del elements starting at start and inserts ins in their
// place, recording del delete patches at the same absolute index (each
// delete shifts subsequent elements down, so the index does not advance)
// followed by len(ins) insert patches at ascending indices.
func (d *Draft) Splice(root any, path []any, start, del int, ins ...any) {
	spliceIn(root, path, start, del, ins...)
	for i := 0; i < del; i++ {
		d.Delete(append(append([]any(nil), path...), start))
	}
	for i, item := range ins {
		d.Insert(append(append([]any(nil), path...), start+i), item)
	}
}

// Push appends value to the array at path. Per the spec's open question
// on push/pop, this emits a single OpInsert at the new tail index rather
// than a (set element, set length) pair — the teacher's own PatchOp
// convention is one op per discrete change, and the client interpreter
// treats OpInsert and an append consistently either way.
func (d *Draft) Push(root any, path []any, value any) {
	n := lengthIn(root, path)
	pushIn(root, path, value)
	d.Insert(append(append([]any(nil), path...), n), value)
}

// Pop removes the last element of the array at path, recording a single
// delete patch at its index.
func (d *Draft) Pop(root any, path []any) {
	n := lengthIn(root, path)
	if n == 0 {
		return
	}
	popIn(root, path)
	d.Delete(append(append([]any(nil), path...), n-1))
}

// Apply replays batch against target, the client-side patch interpreter
// of spec.md §4.5: OpDelete at a map key removes that key; OpDelete at
// an array index removes that element (shifting later indices down, so
// the same absolute index in a later op in the same batch refers to what
// was originally the next element — matching how Splice recorded it);
// OpSet assigns a value; OpInsert inserts at an array index, shifting
// later elements up. target must be structurally equal to the tree the
// batch was recorded against.
func Apply(target any, batch Batch) {
	for _, op := range batch {
		switch op.Op {
		case OpSet:
			setIn(target, op.Path, op.Value)
		case OpDelete:
			if len(op.Path) > 0 {
				if idx, isIdx := op.Path[len(op.Path)-1].(int); isIdx {
					spliceIn(target, op.Path[:len(op.Path)-1], idx, 1)
					continue
				}
			}
			deleteIn(target, op.Path)
		case OpInsert:
			idx := op.Path[len(op.Path)-1].(int)
			spliceIn(target, op.Path[:len(op.Path)-1], idx, 0, op.Value)
		}
	}
}
