// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/engine"
)

type (
	// Table maps root-relative handler paths to handlers. Keys use forward
	// slashes and may omit the extension: "hello/command.go" and
	// "hello/command" both name the command handler of "hello".
	Table map[string]engine.Handler

	// TableLoader serves handlers from a Table.
	TableLoader struct {
		root  string
		table Table
	}

	// Mux routes each handler file to the loader registered for its extension.
	Mux struct {
		byExt map[string]engine.Loader
	}
)

// NewTableLoader creates a loader for handler files under root.
func NewTableLoader(root string, table Table) *TableLoader {
	return &TableLoader{root: root, table: table}
}

// Load implements engine.Loader.
func (l *TableLoader) Load(_ context.Context, entry discovery.HandlerEntry) (engine.Handler, error) {
	key, err := l.key(entry.FilePath)
	if err != nil {
		return nil, err
	}
	if h, ok := l.table[key]; ok {
		return h, nil
	}
	if h, ok := l.table[strings.TrimSuffix(key, filepath.Ext(key))]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("%w: %s is not registered", engine.ErrHandlerNotFound, key)
}

// key returns the slash-separated path of a handler file relative to the root.
func (l *TableLoader) key(path string) (string, error) {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s is outside %s", engine.ErrHandlerNotFound, path, l.root)
	}
	return filepath.ToSlash(rel), nil
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{byExt: map[string]engine.Loader{}}
}

// New returns the standard Mux: .cue files through a CUELoader and .go files
// through a TableLoader over table.
func New(root string, table Table, opts ...CUEOption) *Mux {
	return NewMux().
		Handle(".cue", NewCUELoader(opts...)).
		Handle(".go", NewTableLoader(root, table))
}

// Handle registers l for files with extension ext (".cue"). It returns m.
func (m *Mux) Handle(ext string, l engine.Loader) *Mux {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	m.byExt[ext] = l
	return m
}

// Load implements engine.Loader.
func (m *Mux) Load(ctx context.Context, entry discovery.HandlerEntry) (engine.Handler, error) {
	l, ok := m.byExt[filepath.Ext(entry.FilePath)]
	if !ok {
		return nil, fmt.Errorf("%w: no loader for %s", engine.ErrHandlerNotFound, entry.FilePath)
	}
	return l.Load(ctx, entry)
}
