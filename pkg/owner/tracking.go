package owner

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// trackingContexts holds the current owner per goroutine, keyed by
// goroutine id. A request's reactive execution runs on one goroutine at a
// time but many requests run concurrently, so the current owner cannot be
// a single package-level variable.
var trackingContexts sync.Map // goroutineID -> *Owner

// getGoroutineID extracts the numeric goroutine id from the runtime stack
// trace header ("goroutine 123 [running]:"). It is the only portable way
// to get a goroutine-local key without threading a context everywhere the
// spec's public primitive surface is called without one.
func getGoroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	idx := bytes.IndexByte(buf, ' ')
	if idx < 0 {
		return 0
	}
	id, err := strconv.ParseInt(string(buf[:idx]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Current returns the owner installed for the calling goroutine, or nil.
func Current() *Owner {
	v, ok := trackingContexts.Load(getGoroutineID())
	if !ok {
		return nil
	}
	return v.(*Owner)
}

// RunWithOwner installs owner as current for the duration of fn, restoring
// whatever was current before on return (including on panic), per the
// scoped-acquisition discipline the whole ownership layer relies on.
func RunWithOwner(o *Owner, fn func()) {
	gid := getGoroutineID()
	prev, hadPrev := trackingContexts.Load(gid)
	trackingContexts.Store(gid, o)
	defer func() {
		if hadPrev {
			trackingContexts.Store(gid, prev)
		} else {
			trackingContexts.Delete(gid)
		}
	}()
	fn()
}

// CreateOwner creates a child of the current owner (per RunWithOwner).
// With no current owner it does not panic: it returns a new root whose
// id is explicitID[0], or "0" when none is given.
func CreateOwner(explicitID ...string) *Owner {
	cur := Current()
	if cur == nil {
		return NewRoot(firstOr(explicitID, "0"))
	}
	return cur.CreateChild(explicitID...)
}

func firstOr(s []string, fallback string) string {
	if len(s) > 0 && s[0] != "" {
		return s[0]
	}
	return fallback
}

// OnCleanup registers fn on the current owner. It is a no-op if there is
// no current owner (mirrors createRoot-less top-level calls being
// programmer error elsewhere, but cleanup registration is forgiving).
func OnCleanup(fn func()) {
	if cur := Current(); cur != nil {
		cur.OnCleanup(fn)
	}
}
