package reactive

import (
	"fmt"

	"github.com/vango-dev/hydra/pkg/template"
)

// NotReadyError signals that a computation suspended awaiting Source. It
// is recoverable: a Loading boundary captures it as a hole, and a memo's
// own retry chain captures it internally to re-run once Source settles.
type NotReadyError struct {
	Source any // *Promise[T] or an AsyncIterable, type-erased for panic/recover
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("reactive: not ready, suspended on %T", e.Source)
}

// PendingSource exposes Source as a template.Pending when it reports
// settlement (every *Promise[T] does), letting pkg/template capture a
// caught NotReadyError as a re-runnable hole without importing reactive's
// generic Promise type.
func (e *NotReadyError) PendingSource() template.Pending {
	if p, ok := e.Source.(template.Pending); ok {
		return p
	}
	return nil
}

// ErrNoOwner is raised (via panic, mirroring NotReadyError's control-flow
// use) when an API that requires an active owner is called with none
// installed.
type ErrNoOwner struct{}

func (ErrNoOwner) Error() string { return "reactive: no owner is active" }

// ErrContextNotFound is raised when useContext is called for a context
// with no default and no active provider.
type ErrContextNotFound struct {
	Key any
}

func (e ErrContextNotFound) Error() string {
	return fmt.Sprintf("reactive: no provider for context %v and no default set", e.Key)
}
