package reactive

// CreateComputedSignal implements createSignal's function-argument form:
// "with a function first argument: delegate to a memo that returns a
// (get,set) closure — the memo is the suspension-aware carrier" (spec.md
// §4.2). The returned get panics with the memo's NotReadyError while
// compute is suspended, exactly like Memo.Get; set writes directly into
// the backing memo's value and renotifies its subscribers without
// re-running compute (an external override, as for an optimistic update).
func CreateComputedSignal[T any](compute func(prev T) Result[T], initial T, opts ...Option[T]) (get func() T, set func(T)) {
	m := CreateMemo(compute, initial, opts...)
	get = m.Get
	set = func(v T) {
		m.mu.Lock()
		changed := !m.equal(m.value, v)
		m.value = v
		m.err = nil
		m.mu.Unlock()
		if changed {
			m.notify()
		}
	}
	return get, set
}
