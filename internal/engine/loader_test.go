// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/registry"
)

func commandEntry(file string) discovery.HandlerEntry {
	def, _ := registry.Default().Get(registry.KindCommand)
	return discovery.HandlerEntry{FilePath: file, Definition: def, CommandPath: "hello"}
}

func TestMemoize_LoadsOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	m := Memoize(LoaderFunc(func(context.Context, discovery.HandlerEntry) (Handler, error) {
		calls.Add(1)
		<-release
		return Command(func(context.Context, *Context) error { return nil }), nil
	}))

	const workers = 32
	var wg sync.WaitGroup
	results := make([]Handler, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := m.Load(context.Background(), commandEntry("/root/hello/command.go"))
			if err != nil {
				t.Errorf("Load() error = %v", err)
			}
			results[i] = h
		}()
	}
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("underlying loader called %d times, want 1", n)
	}
	for i, h := range results {
		if h != results[0] {
			t.Errorf("worker %d got a different handler", i)
		}
	}

	if _, err := m.Load(context.Background(), commandEntry("/root/hello/command.go")); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("cached load called the loader again (%d calls)", n)
	}
}

func TestMemoize_CachesErrorsAndForgets(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	broken := errors.New("syntax error")
	m := Memoize(LoaderFunc(func(context.Context, discovery.HandlerEntry) (Handler, error) {
		calls.Add(1)
		return nil, broken
	}))

	for range 2 {
		if _, err := m.Load(context.Background(), commandEntry("/root/a.go")); !errors.Is(err, broken) {
			t.Fatalf("Load() error = %v, want %v", err, broken)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}

	m.Forget()
	_, _ = m.Load(context.Background(), commandEntry("/root/a.go"))
	if n := calls.Load(); n != 2 {
		t.Errorf("calls after Forget = %d, want 2", n)
	}
}

func TestMemoize_RecoversPanicsAndChecksKind(t *testing.T) {
	t.Parallel()

	m := Memoize(LoaderFunc(func(_ context.Context, e discovery.HandlerEntry) (Handler, error) {
		if e.FilePath == "/root/panic.go" {
			panic("bad init")
		}
		return Help("wrong kind"), nil
	}))

	var pe *PanicError
	if _, err := m.Load(context.Background(), commandEntry("/root/panic.go")); !errors.As(err, &pe) {
		t.Errorf("panic load error = %v, want PanicError", err)
	}

	h, err := m.Load(context.Background(), commandEntry("/root/help.go"))
	var km *KindMismatchError
	if h != nil || !errors.As(err, &km) || km.Want != registry.KindCommand || km.Got != registry.KindHelp {
		t.Errorf("Load() = %v, %v; want KindMismatchError", h, err)
	}
}

func TestMemoize_IsIdempotent(t *testing.T) {
	t.Parallel()

	m := Memoize(LoaderFunc(func(context.Context, discovery.HandlerEntry) (Handler, error) { return nil, nil }))
	if Memoize(m) != m {
		t.Error("Memoize wrapped a MemoLoader twice")
	}
}

func TestProviders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := &Context{Program: "prog"}

	if v, err := Static(42).get(ctx, c); v != 42 || err != nil {
		t.Errorf("Static = %v, %v", v, err)
	}
	if v, err := Factory(func(_ context.Context, c *Context) (string, error) { return c.Program, nil }).get(ctx, c); v != "prog" || err != nil {
		t.Errorf("Factory = %v, %v", v, err)
	}
	if v, err := Lazy(func() (bool, error) { return true, nil }).get(ctx, c); !v || err != nil {
		t.Errorf("Lazy = %v, %v", v, err)
	}

	var nilProvider Provider[string]
	if _, err := nilProvider.get(ctx, c); !errors.Is(err, ErrHandler) {
		t.Errorf("nil provider error = %v, want ErrHandler", err)
	}
}
