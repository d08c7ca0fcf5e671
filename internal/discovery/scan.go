// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cmdtree/cmdtree/internal/metadata"
	"github.com/cmdtree/cmdtree/internal/registry"
)

// DefaultConcurrency bounds concurrent directory reads in ScanParallel.
const DefaultConcurrency = 8

// ErrRootNotDirectory is returned when the scan root exists but is not a directory.
var ErrRootNotDirectory = errors.New("scan root is not a directory")

type (
	// Option configures a scan.
	Option func(*scanOptions)

	scanOptions struct {
		extensions  []string
		extractor   metadata.Extractor
		concurrency int
		logger      *slog.Logger
		catalog     *registry.Catalog
	}

	// scanner holds the state shared by one Scan or ScanParallel call.
	scanner struct {
		opts scanOptions
		root string
		// sem bounds filesystem work; nil for sequential scans.
		sem *semaphore.Weighted
	}

	// dirResult is what visiting one directory subtree produces.
	dirResult struct {
		commands    []*CommandNode
		diagnostics []Diagnostic
	}

	// classified is the handler files found directly in one directory.
	classified struct {
		files       map[registry.Kind]string
		orphans     []string
		rootCommand string
		diagnostics []Diagnostic
	}
)

// WithExtensions sets the recognized handler file extensions in priority
// order. When one directory holds two files for the same kind, the one whose
// extension comes first wins. Default: ".cue", ".go".
func WithExtensions(exts ...string) Option {
	return func(o *scanOptions) {
		o.extensions = nil
		for _, e := range exts {
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			o.extensions = append(o.extensions, e)
		}
	}
}

// WithExtractor sets the metadata extractor. Default: metadata.NewCUEExtractor().
func WithExtractor(e metadata.Extractor) Option {
	return func(o *scanOptions) {
		if e != nil {
			o.extractor = e
		}
	}
}

// WithConcurrency bounds concurrent filesystem work in ScanParallel.
func WithConcurrency(n int) Option {
	return func(o *scanOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger for debug output. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *scanOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCatalog replaces the handler catalog. Default: registry.Default().
func WithCatalog(c *registry.Catalog) Option {
	return func(o *scanOptions) {
		if c != nil {
			o.catalog = c
		}
	}
}

// DefaultExtensions returns the extensions scanned when none are configured.
func DefaultExtensions() []string {
	return []string{".cue", ".go"}
}

// Scan walks root and builds its Structure one directory at a time.
//
// A missing root yields an empty Structure and no error. Unreadable
// directories and malformed files become Diagnostics. Only a root that is not
// a directory, or a canceled ctx, is an error.
func Scan(ctx context.Context, root string, opts ...Option) (*Structure, error) {
	s, err := newScanner(root, opts)
	if err != nil {
		return nil, err
	}
	return s.run(ctx)
}

// ScanParallel is Scan with subdirectories visited concurrently. The result
// equals Scan's for the same tree: commands and diagnostics are sorted once
// every subtree has been joined.
func ScanParallel(ctx context.Context, root string, opts ...Option) (*Structure, error) {
	s, err := newScanner(root, opts)
	if err != nil {
		return nil, err
	}
	s.sem = semaphore.NewWeighted(int64(s.opts.concurrency))
	return s.run(ctx)
}

func newScanner(root string, opts []Option) (*scanner, error) {
	o := scanOptions{
		extensions:  DefaultExtensions(),
		extractor:   metadata.NewCUEExtractor(),
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		catalog:     registry.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.extensions) == 0 {
		o.extensions = DefaultExtensions()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scan root %q: %w", root, err)
	}
	return &scanner{opts: o, root: abs}, nil
}

func (s *scanner) run(ctx context.Context) (*Structure, error) {
	st := &Structure{Root: s.root, Handlers: map[string]HandlerEntry{}}

	info, err := os.Stat(s.root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.opts.logger.Debug("scan root does not exist", "root", s.root)
		return st, nil
	case err != nil:
		return nil, fmt.Errorf("stat scan root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, s.root)
	}

	entries, err := s.readDir(ctx, s.root)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		st.Diagnostics = append(st.Diagnostics, unreadable(s.root, err))
		return st, nil
	}

	globals := s.classify(s.root, entries, registry.ScopeGlobal)
	st.Diagnostics = append(st.Diagnostics, globals.diagnostics...)
	if globals.rootCommand != "" {
		st.Diagnostics = append(st.Diagnostics, NewDiagnosticWithPath(SeverityWarning, CodeRootCommandIgnored,
			"command file at the scan root is ignored; commands live in subdirectories", globals.rootCommand))
	}
	for _, orphan := range globals.orphans {
		st.Diagnostics = append(st.Diagnostics, orphanDiagnostic(orphan))
	}
	for kind, path := range globals.files {
		def, _ := s.opts.catalog.Get(kind)
		st.Handlers[HandlerKey("", kind)] = HandlerEntry{FilePath: path, Definition: def}
	}
	if path, ok := globals.files[registry.KindVersion]; ok {
		info, err := s.opts.extractor.ExtractVersion(ctx, path)
		if err != nil {
			st.Diagnostics = append(st.Diagnostics, NewDiagnosticWithCause(SeverityWarning, CodeMetadataParseFailed,
				fmt.Sprintf("version metadata could not be read: %v", err), path, err))
		} else {
			st.Version = info
		}
	}

	res, err := s.visitChildren(ctx, s.root, entries, nil)
	if err != nil {
		return nil, err
	}

	st.Commands = res.commands
	st.Diagnostics = append(st.Diagnostics, res.diagnostics...)
	s.finalize(st)

	s.opts.logger.Debug("scan complete", "root", s.root,
		"commands", len(st.Commands), "diagnostics", len(st.Diagnostics), "parallel", s.sem != nil)
	return st, nil
}

// visitChildren visits every non-hidden subdirectory among entries.
func (s *scanner) visitChildren(ctx context.Context, dir string, entries []fs.DirEntry, parent []Segment) (dirResult, error) {
	var children []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		children = append(children, e.Name())
	}
	results := make([]dirResult, len(children))

	if s.sem == nil {
		for i, name := range children {
			r, err := s.visit(ctx, filepath.Join(dir, name), name, parent)
			if err != nil {
				return dirResult{}, err
			}
			results[i] = r
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, name := range children {
			g.Go(func() error {
				r, err := s.visit(gctx, filepath.Join(dir, name), name, parent)
				results[i] = r
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return dirResult{}, err
		}
	}

	var out dirResult
	for _, r := range results {
		out.commands = append(out.commands, r.commands...)
		out.diagnostics = append(out.diagnostics, r.diagnostics...)
	}
	return out, nil
}

// visit handles one directory below the root and recurses into its children.
func (s *scanner) visit(ctx context.Context, dir, name string, parent []Segment) (dirResult, error) {
	if err := ctx.Err(); err != nil {
		return dirResult{}, err
	}

	seg, ok := ParseSegment(name)
	if ok && seg.Dynamic && slices.ContainsFunc(parent, func(p Segment) bool { return p.Dynamic && p.Value == seg.Value }) {
		ok = false
	}
	if !ok {
		return dirResult{diagnostics: []Diagnostic{NewDiagnosticWithPath(SeverityWarning, CodeInvalidSegment,
			fmt.Sprintf("directory name %q is not a valid command segment; subtree skipped", name), dir)}}, nil
	}
	segs := append(slices.Clone(parent), seg)

	entries, err := s.readDir(ctx, dir)
	if err != nil {
		if ctx.Err() != nil {
			return dirResult{}, ctx.Err()
		}
		return dirResult{diagnostics: []Diagnostic{unreadable(dir, err)}}, nil
	}

	var res dirResult
	local := s.classify(dir, entries, registry.ScopeCommand)
	res.diagnostics = append(res.diagnostics, local.diagnostics...)

	if source, ok := local.files[registry.KindCommand]; ok {
		node := &CommandNode{
			Path:       JoinSegments(segs),
			Segments:   segs,
			Dir:        dir,
			SourceFile: source,
			Handlers:   local.files,
		}
		if diag, ok := s.extractMetadata(ctx, node); !ok {
			res.diagnostics = append(res.diagnostics, diag)
		}
		res.commands = append(res.commands, node)
		s.opts.logger.Debug("discovered command", "path", node.Path, "handlers", len(node.Handlers))
	} else {
		for _, path := range local.files {
			res.diagnostics = append(res.diagnostics, orphanDiagnostic(path))
		}
	}

	sub, err := s.visitChildren(ctx, dir, entries, segs)
	if err != nil {
		return dirResult{}, err
	}
	res.commands = append(res.commands, sub.commands...)
	res.diagnostics = append(res.diagnostics, sub.diagnostics...)
	return res, nil
}

// classify matches the regular files directly inside dir against the file
// names of scope. At the root, command-scope names other than the global ones
// are reported back as a root command file or orphans.
func (s *scanner) classify(dir string, entries []fs.DirEntry, scope registry.Scope) classified {
	c := classified{files: map[registry.Kind]string{}}
	rank := map[registry.Kind]int{}

	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := filepath.Ext(e.Name())
		extRank := slices.Index(s.opts.extensions, ext)
		if extRank < 0 {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ext)
		path := filepath.Join(dir, e.Name())

		def, ok := s.opts.catalog.ByFileName(scope, base)
		if !ok {
			if scope == registry.ScopeGlobal {
				if local, isLocal := s.opts.catalog.ByFileName(registry.ScopeCommand, base); isLocal {
					if local.Required {
						c.rootCommand = path
					} else {
						c.orphans = append(c.orphans, path)
					}
				}
			}
			continue
		}

		existing, dup := c.files[def.Kind]
		if !dup {
			c.files[def.Kind] = path
			rank[def.Kind] = extRank
			continue
		}
		kept, dropped := existing, path
		if extRank < rank[def.Kind] {
			kept, dropped = path, existing
			c.files[def.Kind] = path
			rank[def.Kind] = extRank
		}
		c.diagnostics = append(c.diagnostics, NewDiagnosticWithPath(SeverityWarning, CodeDuplicateHandlerFile,
			fmt.Sprintf("%s handler defined twice; using %s and ignoring %s",
				def.Kind, filepath.Base(kept), filepath.Base(dropped)), dropped))
	}
	return c
}

// extractMetadata reads metadata from the command file, falling back to the
// help file. It reports false with a warning diagnostic when extraction fails.
func (s *scanner) extractMetadata(ctx context.Context, node *CommandNode) (Diagnostic, bool) {
	sources := []string{node.SourceFile}
	if help, ok := node.Handlers[registry.KindHelp]; ok {
		sources = append(sources, help)
	}

	for _, path := range sources {
		md, err := withIO(ctx, s.sem, func() (*metadata.Metadata, error) {
			return s.opts.extractor.Extract(ctx, path)
		})
		if err != nil {
			return NewDiagnosticWithCause(SeverityWarning, CodeMetadataParseFailed,
				fmt.Sprintf("metadata could not be read; command kept without it: %v", err), path, err), false
		}
		if md != nil {
			node.Metadata = md
			return Diagnostic{}, true
		}
	}
	return Diagnostic{}, true
}

func (s *scanner) readDir(ctx context.Context, dir string) ([]fs.DirEntry, error) {
	return withIO(ctx, s.sem, func() ([]fs.DirEntry, error) {
		return os.ReadDir(dir)
	})
}

// withIO runs fn under sem when it is set. Only leaf work holds a slot, so
// nested fan-out cannot exhaust it.
func withIO[T any](ctx context.Context, sem *semaphore.Weighted, fn func() (T, error)) (T, error) {
	if sem == nil {
		return fn()
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		var zero T
		return zero, err
	}
	defer sem.Release(1)
	return fn()
}

// finalize sorts the walk output and derives everything computed from the
// whole tree: the handler map, dependency checks and alias collisions.
func (s *scanner) finalize(st *Structure) {
	derive(st, s.opts.catalog)
}

func unreadable(dir string, err error) Diagnostic {
	return NewDiagnosticWithCause(SeverityWarning, CodeDirectoryUnreadable,
		fmt.Sprintf("directory skipped: %v", err), dir, err)
}

func orphanDiagnostic(path string) Diagnostic {
	return NewDiagnosticWithPath(SeverityWarning, CodeOrphanHandler,
		"handler file has no command file in its directory and is not attached", path)
}
