// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/registry"
)

type (
	// Loader turns a discovered handler file into a Handler.
	Loader interface {
		Load(ctx context.Context, entry discovery.HandlerEntry) (Handler, error)
	}

	// LoaderFunc adapts a function to the Loader interface.
	LoaderFunc func(ctx context.Context, entry discovery.HandlerEntry) (Handler, error)

	// MemoLoader loads each handler file at most once. Concurrent loads of one
	// file share a single call; results, errors included, are cached.
	MemoLoader struct {
		next  Loader
		group singleflight.Group

		mu    sync.RWMutex
		cache map[string]loadResult
	}

	loadResult struct {
		h   Handler
		err error
	}
)

// warmKinds are loaded concurrently before the chain runs.
var warmKinds = []registry.Kind{registry.KindEnv, registry.KindMiddleware, registry.KindGlobalError}

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, entry discovery.HandlerEntry) (Handler, error) {
	return f(ctx, entry)
}

// Memoize wraps l with an at-most-once cache. A MemoLoader is returned as is.
func Memoize(l Loader) *MemoLoader {
	if m, ok := l.(*MemoLoader); ok {
		return m
	}
	return &MemoLoader{next: l, cache: make(map[string]loadResult)}
}

// Load returns the cached handler for entry.FilePath, loading it on first use.
func (m *MemoLoader) Load(ctx context.Context, entry discovery.HandlerEntry) (Handler, error) {
	if r, ok := m.cached(entry.FilePath); ok {
		return r.h, r.err
	}

	v, _, _ := m.group.Do(entry.FilePath, func() (any, error) {
		if r, ok := m.cached(entry.FilePath); ok {
			return r, nil
		}
		h, err := safeLoad(ctx, m.next, entry)
		if err == nil && h != nil && h.Kind() != entry.Definition.Kind {
			err = &KindMismatchError{File: entry.FilePath, Want: entry.Definition.Kind, Got: h.Kind()}
			h = nil
		}
		r := loadResult{h: h, err: err}
		// A canceled caller must not poison the cache for later invocations.
		if ctx.Err() == nil {
			m.mu.Lock()
			m.cache[entry.FilePath] = r
			m.mu.Unlock()
		}
		return r, nil
	})
	r := v.(loadResult)
	return r.h, r.err
}

// Forget drops every cached handler, e.g. after a rescan.
func (m *MemoLoader) Forget() {
	m.mu.Lock()
	clear(m.cache)
	m.mu.Unlock()
}

func (m *MemoLoader) cached(file string) (loadResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.cache[file]
	return r, ok
}

// warm loads the given entries concurrently and ignores failures; they are
// reported again when the chain loads the same entry in order.
func warm(ctx context.Context, l Loader, entries []discovery.HandlerEntry) {
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		g.Go(func() error {
			_, _ = l.Load(gctx, e)
			return nil
		})
	}
	_ = g.Wait()
}

func safeLoad(ctx context.Context, l Loader, entry discovery.HandlerEntry) (h Handler, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, &PanicError{Value: r}
		}
	}()
	return l.Load(ctx, entry)
}
