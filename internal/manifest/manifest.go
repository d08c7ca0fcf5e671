// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/metadata"
	"github.com/cmdtree/cmdtree/internal/registry"
)

// SchemaVersion is the manifest layout version written by FromStructure.
const SchemaVersion = 1

// ErrInvalidManifest is the sentinel error wrapped by InvalidManifestError.
var ErrInvalidManifest = errors.New("invalid manifest")

type (
	// Manifest is the serialized form of a discovery.Structure.
	Manifest struct {
		SchemaVersion int          `json:"schemaVersion" yaml:"schema_version" toml:"schema_version"`
		Root          string       `json:"root" yaml:"root" toml:"root"`
		Version       *Version     `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
		Globals       []Handler    `json:"globals,omitempty" yaml:"globals,omitempty" toml:"globals,omitempty"`
		Commands      []Command    `json:"commands" yaml:"commands" toml:"commands"`
		Diagnostics   []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty" toml:"diagnostics,omitempty"`
	}

	// Version is the declared program version.
	Version struct {
		Version  string             `json:"version" yaml:"version" toml:"version"`
		Metadata *metadata.Metadata `json:"meta,omitempty" yaml:"meta,omitempty" toml:"meta,omitempty"`
	}

	// Command is one discovered command.
	Command struct {
		// Path is the slash-joined segment chain, e.g. "user/[id]/show".
		Path     string             `json:"path" yaml:"path" toml:"path"`
		Params   []string           `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
		Handlers []Handler          `json:"handlers" yaml:"handlers" toml:"handlers"`
		Metadata *metadata.Metadata `json:"meta,omitempty" yaml:"meta,omitempty" toml:"meta,omitempty"`
	}

	// Handler is one handler file, relative to the root with forward slashes.
	Handler struct {
		Kind registry.Kind `json:"kind" yaml:"kind" toml:"kind"`
		File string        `json:"file" yaml:"file" toml:"file"`
	}

	// Diagnostic is a scan finding. Path is relative to the root.
	Diagnostic struct {
		Severity discovery.Severity       `json:"severity" yaml:"severity" toml:"severity"`
		Code     discovery.DiagnosticCode `json:"code" yaml:"code" toml:"code"`
		Message  string                   `json:"message" yaml:"message" toml:"message"`
		Path     string                   `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	}

	// InvalidManifestError lists everything wrong with a manifest.
	InvalidManifestError struct {
		Problems []string
	}
)

// Error implements the error interface.
func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidManifest, strings.Join(e.Problems, "; "))
}

// Unwrap returns ErrInvalidManifest for errors.Is() compatibility.
func (e *InvalidManifestError) Unwrap() error { return ErrInvalidManifest }

// FromStructure converts st. Commands keep the structure's order and handlers
// are listed in execution order.
func FromStructure(st *discovery.Structure) *Manifest {
	m := &Manifest{SchemaVersion: SchemaVersion, Root: st.Root, Commands: []Command{}}
	if st.Version != nil {
		m.Version = &Version{Version: st.Version.Version, Metadata: st.Version.Metadata.Clone()}
	}
	for _, kind := range st.GlobalKinds() {
		e, _ := st.Global(kind)
		m.Globals = append(m.Globals, Handler{Kind: kind, File: relTo(st.Root, e.FilePath)})
	}
	for _, c := range st.Commands {
		cmd := Command{Path: c.Path, Params: c.ParamNames(), Metadata: c.Metadata.Clone()}
		for _, kind := range c.Kinds() {
			cmd.Handlers = append(cmd.Handlers, Handler{Kind: kind, File: relTo(st.Root, c.Handlers[kind])})
		}
		m.Commands = append(m.Commands, cmd)
	}
	for _, d := range st.Diagnostics {
		m.Diagnostics = append(m.Diagnostics, Diagnostic{
			Severity: d.Severity,
			Code:     d.Code,
			Message:  d.Message,
			Path:     relTo(st.Root, d.Path),
		})
	}
	return m
}

// Structure rebuilds the discovery.Structure. Relative handler paths are
// joined to m.Root, which must be absolute. Dependency and alias collision
// diagnostics are recomputed against catalog (nil means the default).
func (m *Manifest) Structure(catalog *registry.Catalog) (*discovery.Structure, error) {
	if catalog == nil {
		catalog = registry.Default()
	}
	if err := m.Validate(catalog); err != nil {
		return nil, err
	}

	a := discovery.Assembly{Root: m.Root, Globals: map[registry.Kind]string{}, Catalog: catalog}
	if m.Version != nil {
		a.Version = &metadata.VersionInfo{Version: m.Version.Version, Metadata: m.Version.Metadata.Clone()}
	}
	for _, h := range m.Globals {
		a.Globals[h.Kind] = m.abs(h.File)
	}
	for _, c := range m.Commands {
		segs := make([]discovery.Segment, 0, strings.Count(c.Path, "/")+1)
		for part := range strings.SplitSeq(c.Path, "/") {
			seg, _ := discovery.ParseSegment(part)
			segs = append(segs, seg)
		}
		node := &discovery.CommandNode{
			Path:     c.Path,
			Segments: segs,
			Handlers: make(map[registry.Kind]string, len(c.Handlers)),
			Metadata: c.Metadata.Clone(),
		}
		for _, h := range c.Handlers {
			node.Handlers[h.Kind] = m.abs(h.File)
		}
		node.SourceFile = node.Handlers[registry.KindCommand]
		node.Dir = filepath.Dir(node.SourceFile)
		a.Commands = append(a.Commands, node)
	}
	for _, d := range m.Diagnostics {
		path := d.Path
		if path != "" {
			path = m.abs(path)
		}
		a.Diagnostics = append(a.Diagnostics, discovery.NewDiagnosticWithPath(d.Severity, d.Code, d.Message, path))
	}
	return discovery.Assemble(a), nil
}

// Validate checks that m can be turned into a Structure: a supported schema
// version, an absolute root, well-formed unique command paths, known handler
// kinds in the right scope and a command file for every command.
func (m *Manifest) Validate(catalog *registry.Catalog) error {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if m.SchemaVersion != SchemaVersion {
		add("unsupported schema version %d (want %d)", m.SchemaVersion, SchemaVersion)
	}
	if !filepath.IsAbs(m.Root) {
		add("root %q is not absolute", m.Root)
	}

	checkHandlers := func(owner string, hs []Handler, scope registry.Scope) {
		seen := map[registry.Kind]bool{}
		for _, h := range hs {
			def, ok := catalog.Get(h.Kind)
			switch {
			case !ok:
				add("%s: unknown handler kind %q", owner, h.Kind)
			case def.Scope != scope:
				add("%s: %s handlers are %s-scoped", owner, h.Kind, def.Scope)
			case seen[h.Kind]:
				add("%s: duplicate %s handler", owner, h.Kind)
			}
			seen[h.Kind] = true
			if h.File == "" || filepath.IsAbs(h.File) || strings.HasPrefix(h.File, "../") {
				add("%s: handler file %q must be relative to the root", owner, h.File)
			}
		}
	}
	checkHandlers("globals", m.Globals, registry.ScopeGlobal)

	paths := map[string]bool{}
	for i, c := range m.Commands {
		owner := fmt.Sprintf("commands[%d]", i)
		if !validPath(c.Path) {
			add("%s: invalid command path %q", owner, c.Path)
		} else {
			owner = fmt.Sprintf("command %q", c.Path)
		}
		if paths[c.Path] {
			add("%s: duplicate command", owner)
		}
		paths[c.Path] = true
		checkHandlers(owner, c.Handlers, registry.ScopeCommand)
		if !slices.ContainsFunc(c.Handlers, func(h Handler) bool { return h.Kind == registry.KindCommand }) {
			add("%s: no command handler", owner)
		}
	}

	if len(problems) > 0 {
		return &InvalidManifestError{Problems: problems}
	}
	return nil
}

func validPath(path string) bool {
	if path == "" {
		return false
	}
	for part := range strings.SplitSeq(path, "/") {
		if _, ok := discovery.ParseSegment(part); !ok {
			return false
		}
	}
	return true
}

func (m *Manifest) abs(rel string) string {
	return filepath.Join(m.Root, filepath.FromSlash(rel))
}

// relTo returns path relative to root with forward slashes, or path itself
// when it is not under root.
func relTo(root, path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
