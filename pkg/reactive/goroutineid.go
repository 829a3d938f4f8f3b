package reactive

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the numeric id from the current goroutine's stack
// trace header, the same technique pkg/owner uses to key its per-goroutine
// current-owner map. Reactive tracking needs its own goroutine-local
// current-listener slot for the identical reason: memo recomputation must
// not see another request's listener interleaved on the same process.
func goroutineID() int64 {
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
