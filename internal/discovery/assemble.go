// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"slices"

	"github.com/cmdtree/cmdtree/internal/metadata"
	"github.com/cmdtree/cmdtree/internal/registry"
)

// derivedCodes are recomputed by derive from the whole tree.
var derivedCodes = []DiagnosticCode{CodeHandlerDependencyMissing, CodeAliasCollision}

// Assembly is a tree described without walking a directory, e.g. read back
// from a manifest. Paths must be absolute.
type Assembly struct {
	Root     string
	Globals  map[registry.Kind]string
	Version  *metadata.VersionInfo
	Commands []*CommandNode
	// Diagnostics are carried over. Dependency and alias collision
	// diagnostics are dropped and recomputed.
	Diagnostics []Diagnostic
	// Catalog defaults to registry.Default().
	Catalog *registry.Catalog
}

// Assemble builds a Structure the same way Scan finishes one: commands are
// sorted, the handler map is filled and whole-tree checks run.
func Assemble(a Assembly) *Structure {
	catalog := a.Catalog
	if catalog == nil {
		catalog = registry.Default()
	}

	st := &Structure{
		Root:     a.Root,
		Commands: slices.Clone(a.Commands),
		Handlers: make(map[string]HandlerEntry, len(a.Globals)),
		Version:  a.Version,
	}
	for _, d := range a.Diagnostics {
		if !slices.Contains(derivedCodes, d.Code) {
			st.Diagnostics = append(st.Diagnostics, d)
		}
	}
	for kind, path := range a.Globals {
		def, _ := catalog.Get(kind)
		st.Handlers[HandlerKey("", kind)] = HandlerEntry{FilePath: path, Definition: def}
	}
	derive(st, catalog)
	return st
}

func derive(st *Structure, catalog *registry.Catalog) {
	sortCommands(st.Commands)

	globalKinds := st.GlobalKinds()
	for _, cmd := range st.Commands {
		for kind, path := range cmd.Handlers {
			def, _ := catalog.Get(kind)
			st.Handlers[HandlerKey(cmd.Path, kind)] = HandlerEntry{FilePath: path, Definition: def, CommandPath: cmd.Path}
		}
		st.Diagnostics = append(st.Diagnostics, checkDependencies(catalog, globalKinds, cmd)...)
	}
	st.Diagnostics = append(st.Diagnostics, checkAliasCollisions(st.Commands)...)

	sortDiagnostics(st.Diagnostics)
}
