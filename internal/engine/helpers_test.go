// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/metadata"
	"github.com/cmdtree/cmdtree/internal/registry"
)

// fixture is an in-memory structure plus a counting Loader.
type fixture struct {
	st       *discovery.Structure
	handlers map[string]Handler

	mu    sync.Mutex
	loads map[string]int
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type exitErr struct{ code int }

func (e exitErr) Error() string { return "exit requested" }
func (e exitErr) ExitCode() int { return e.code }

func newFixture() *fixture {
	return &fixture{
		st: &discovery.Structure{
			Root:     "/root",
			Handlers: map[string]discovery.HandlerEntry{},
		},
		handlers: map[string]Handler{},
		loads:    map[string]int{},
	}
}

func (f *fixture) global(h Handler) *fixture {
	return f.globalAs(h.Kind(), h)
}

// globalAs stores h under the file of kind, which may differ from h's own kind.
func (f *fixture) globalAs(kind registry.Kind, h Handler) *fixture {
	def, _ := registry.Default().Get(kind)
	file := "/root/" + def.FileName + ".go"
	f.st.Handlers[discovery.HandlerKey("", kind)] = discovery.HandlerEntry{FilePath: file, Definition: def}
	f.handlers[file] = h
	return f
}

func (f *fixture) command(path string, meta *metadata.Metadata, hs ...Handler) *fixture {
	n := &discovery.CommandNode{
		Path:       path,
		Dir:        "/root/" + path,
		SourceFile: "/root/" + path + "/command.go",
		Handlers:   map[registry.Kind]string{},
		Metadata:   meta,
	}
	for _, part := range strings.Split(path, "/") {
		seg, _ := discovery.ParseSegment(part)
		n.Segments = append(n.Segments, seg)
	}
	for _, h := range hs {
		def, _ := registry.Default().Get(h.Kind())
		file := n.Dir + "/" + def.FileName + ".go"
		n.Handlers[def.Kind] = file
		f.st.Handlers[discovery.HandlerKey(path, def.Kind)] = discovery.HandlerEntry{
			FilePath:    file,
			Definition:  def,
			CommandPath: path,
		}
		f.handlers[file] = h
	}
	f.st.Commands = append(f.st.Commands, n)
	return f
}

func (f *fixture) Load(_ context.Context, entry discovery.HandlerEntry) (Handler, error) {
	f.mu.Lock()
	f.loads[entry.FilePath]++
	f.mu.Unlock()
	h, ok := f.handlers[entry.FilePath]
	if !ok {
		return nil, ErrHandlerNotFound
	}
	return h, nil
}

func (f *fixture) loadCount(file string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads[file]
}

func (f *fixture) engine(stdout, stderr io.Writer, opts ...Option) *Engine {
	base := []Option{
		WithProgram("prog"),
		WithStdio(strings.NewReader(""), stdout, stderr),
		WithEnviron([]string{"HOME=/home/test"}),
		WithLogger(slog.New(slog.DiscardHandler)),
	}
	return New(f.st, f, append(base, opts...)...)
}

func (f *fixture) run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	return f.runWith(t, nil, args...)
}

func (f *fixture) runWith(t *testing.T, opts []Option, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	code = f.engine(&out, &errb, opts...).Dispatch(context.Background(), args)
	return code, out.String(), errb.String()
}
