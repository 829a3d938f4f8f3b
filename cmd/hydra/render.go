package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/hydra/pkg/boundary"
	"github.com/vango-dev/hydra/pkg/owner"
	"github.com/vango-dev/hydra/pkg/reactive"
	"github.com/vango-dev/hydra/pkg/template"
)

// fixture builds a boundary's fallback HTML and Render body fresh for
// one invocation; fixtures that suspend create their promise and
// producer goroutine here, once, rather than inside Render (which may
// run more than once across the boundary's retry loop).
type fixture func() (fallback string, render boundary.Render)

var fixtures = map[string]fixture{
	"sync": func() (string, boundary.Render) {
		return "<p>loading…</p>", func(ctx template.HydrationContext) (template.Object, error) {
			return ctx.SSR([]string{"<p>", "</p>"}, "hello from the sync fixture")
		}
	},
	"suspense": func() (string, boundary.Render) {
		p, resolve, _ := reactive.NewPromise[string]()
		go func() {
			time.Sleep(150 * time.Millisecond)
			resolve("hello from the suspended fixture")
		}()
		return "<p>loading…</p>", func(ctx template.HydrationContext) (template.Object, error) {
			get, _ := reactive.CreateComputedSignal(func(prev string) reactive.Result[string] {
				return reactive.FromPromise(p)
			}, "")
			return ctx.SSR([]string{"<p>", "</p>"}, get())
		}
	},
}

func renderCmd() *cobra.Command {
	var async bool

	cmd := &cobra.Command{
		Use:   "render <fixture>",
		Short: "Render a built-in fixture through a full boundary lifecycle",
		Long: `Render drives a fixture through the Loading boundary's
Fresh -> Sync-success / Holes-present -> Done lifecycle and prints the
resulting HTML and serialized side-channel records.

Available fixtures:
  sync      data is ready on the first attempt, no suspension
  suspense  the fixture suspends, then settles ~150ms later

Pass --async=false to render in a sync-only context. Neither fixture
leaves a hole for the sync-context fallback ("$$f") to cover: sync has
none, and suspense suspends in its render body, which Run waits out
and retries, so both print their settled HTML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(args[0], async)
		},
	}

	cmd.Flags().BoolVar(&async, "async", true, "render in streaming (async) context rather than sync-only")
	return cmd
}

func runRender(name string, async bool) error {
	build, ok := fixtures[name]
	if !ok {
		return fmt.Errorf("unknown fixture %q (available: sync, suspense)", name)
	}
	fallback, render := build()

	root := owner.CreateOwner("root")
	ctx := template.NewDefaultContext("r", async, false)

	var b *boundary.Boundary
	var html string
	var err error
	owner.RunWithOwner(root, func() {
		b = boundary.New(root, ctx, fallback)
		html, err = b.Run(context.Background(), render)
	})
	if err != nil {
		errorMsg("render failed: %s", err)
		return err
	}

	if strings.Contains(html, "pl-"+b.ID()) {
		html = awaitFragment(ctx, b.ID(), html)
	}

	fmt.Println(html)
	if serialized := ctx.Serialized(); len(serialized) > 0 {
		fmt.Println()
		info("serialized side channel:")
		for k, v := range serialized {
			info("  %s = %v", k, v)
		}
	}
	return nil
}

// awaitFragment waits (briefly) for a streamed fragment to settle, so
// the CLI has something to print beyond the immediate placeholder
// markers. Registering after Run returns is race-free here: Run's
// holes-present(async) branch calls RegisterFragment synchronously,
// before the re-resolution goroutine that would call done() even
// starts.
func awaitFragment(ctx *template.DefaultContext, id string, placeholder string) string {
	done := make(chan string, 1)
	ctx.OnFragmentDone(id, func(html string, err error) {
		if err != nil {
			done <- fmt.Sprintf("<!-- fragment error: %s -->", err)
			return
		}
		done <- html
	})

	select {
	case html := <-done:
		return html
	case <-time.After(2 * time.Second):
		return placeholder
	}
}
