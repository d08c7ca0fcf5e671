// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"cmp"
	"slices"
	"strings"

	"github.com/cmdtree/cmdtree/internal/metadata"
	"github.com/cmdtree/cmdtree/internal/registry"
)

type (
	// Segment is one component of a command path: literal text, or a dynamic
	// placeholder that binds the matching token to Value.
	Segment struct {
		Value   string `json:"value" yaml:"value" toml:"value"`
		Dynamic bool   `json:"dynamic,omitempty" yaml:"dynamic,omitempty" toml:"dynamic,omitempty"`
	}

	// CommandNode is one discovered command. It is immutable after the scan.
	CommandNode struct {
		// Path is the slash-joined segment chain, e.g. "user/[id]/show".
		Path string
		// Segments is Path split into literal and dynamic components.
		Segments []Segment
		// Dir is the absolute directory holding the command file.
		Dir string
		// SourceFile is the absolute path of the command file.
		SourceFile string
		// Handlers maps each attached command-scope kind to its file.
		Handlers map[registry.Kind]string
		// Metadata is what the extractor found, or nil.
		Metadata *metadata.Metadata
	}

	// HandlerEntry is one value of Structure.Handlers.
	HandlerEntry struct {
		FilePath    string
		Definition  registry.Definition
		CommandPath string // empty for global handlers
	}

	// Structure is the result of one scan. It is rebuilt wholesale on rescan
	// and never mutated after Scan returns.
	Structure struct {
		// Root is the absolute scan root.
		Root string
		// Commands are sorted literal-before-dynamic, then lexically.
		Commands []*CommandNode
		// Handlers is keyed by HandlerKey.
		Handlers map[string]HandlerEntry
		// Version is read from the global version file, when there is one.
		Version *metadata.VersionInfo
		// Diagnostics are sorted by path, then code.
		Diagnostics []Diagnostic
	}
)

// ParseSegment converts a directory name into a segment. Bracketed names
// ("[id]") are dynamic. It reports false for names that cannot be segments:
// empty brackets, stray brackets and slashes.
func ParseSegment(name string) (Segment, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return Segment{}, false
	}
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		inner := name[1 : len(name)-1]
		if inner == "" || strings.ContainsAny(inner, "[]") {
			return Segment{}, false
		}
		return Segment{Value: inner, Dynamic: true}, true
	}
	if strings.ContainsAny(name, "[]") {
		return Segment{}, false
	}
	return Segment{Value: name}, true
}

// String returns the segment as it appears on disk.
func (s Segment) String() string {
	if s.Dynamic {
		return "[" + s.Value + "]"
	}
	return s.Value
}

// JoinSegments renders segments as a command path.
func JoinSegments(segs []Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.String()
	}
	return strings.Join(parts, "/")
}

// HandlerKey returns the Structure.Handlers key: "<commandPath>/<kind>" for
// command-scope handlers and "<kind>" for global handlers.
func HandlerKey(commandPath string, kind registry.Kind) string {
	if commandPath == "" {
		return string(kind)
	}
	return commandPath + "/" + string(kind)
}

// ParamNames returns the dynamic segment names in path order.
func (n *CommandNode) ParamNames() []string {
	var names []string
	for _, s := range n.Segments {
		if s.Dynamic {
			names = append(names, s.Value)
		}
	}
	return names
}

// Aliases returns the aliases declared in the command's metadata.
func (n *CommandNode) Aliases() []string {
	if n.Metadata == nil {
		return nil
	}
	return n.Metadata.Aliases
}

// Handler returns the file attached for kind.
func (n *CommandNode) Handler(kind registry.Kind) (string, bool) {
	path, ok := n.Handlers[kind]
	return path, ok
}

// Kinds returns the attached kinds in execution order.
func (n *CommandNode) Kinds() []registry.Kind {
	kinds := make([]registry.Kind, 0, len(n.Handlers))
	for k := range n.Handlers {
		kinds = append(kinds, k)
	}
	return registry.Default().Sort(kinds)
}

// Global returns the global handler for kind.
func (s *Structure) Global(kind registry.Kind) (HandlerEntry, bool) {
	e, ok := s.Handlers[HandlerKey("", kind)]
	return e, ok
}

// GlobalKinds returns the global kinds present at the root in execution order.
func (s *Structure) GlobalKinds() []registry.Kind {
	var kinds []registry.Kind
	for _, e := range s.Handlers {
		if e.CommandPath == "" {
			kinds = append(kinds, e.Definition.Kind)
		}
	}
	return registry.Default().Sort(kinds)
}

// Command returns the command with the given path.
func (s *Structure) Command(path string) (*CommandNode, bool) {
	for _, c := range s.Commands {
		if c.Path == path {
			return c, true
		}
	}
	return nil, false
}

// HasErrors reports whether any diagnostic has error severity.
func (s *Structure) HasErrors() bool {
	return HasErrors(s.Diagnostics)
}

// compareCommands orders commands segment by segment: a literal sorts before a
// dynamic segment at the same position, then segments compare lexically, and
// a shorter path sorts before its extensions.
func compareCommands(a, b *CommandNode) int {
	for i := range min(len(a.Segments), len(b.Segments)) {
		sa, sb := a.Segments[i], b.Segments[i]
		if sa.Dynamic != sb.Dynamic {
			if sa.Dynamic {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(sa.Value, sb.Value); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a.Segments), len(b.Segments))
}

func sortCommands(cmds []*CommandNode) {
	slices.SortStableFunc(cmds, compareCommands)
}
