// SPDX-License-Identifier: MPL-2.0

package cmdtree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/engine"
	"github.com/cmdtree/cmdtree/internal/loader"
	"github.com/cmdtree/cmdtree/internal/manifest"
	"github.com/cmdtree/cmdtree/internal/params"
)

// ErrInvalidTree is returned by New when discovery reports error diagnostics
// and WithStrict is in effect.
var ErrInvalidTree = errors.New("command tree has errors")

type (
	// Structure is a discovered command tree.
	Structure = discovery.Structure
	// Diagnostic is a discovery finding.
	Diagnostic = discovery.Diagnostic
	// Context is the record threaded through one invocation.
	Context = engine.Context
	// Handler is a loaded handler of any kind.
	Handler = engine.Handler
	// Handlers maps root-relative .go handler file paths to handlers.
	Handlers = loader.Table
	// Renderer writes help, version and error output.
	Renderer = engine.Renderer
	// Contract declares a command's parameters.
	Contract = params.Contract
	// Field maps one parameter.
	Field = params.Field

	// InvalidTreeError carries the error diagnostics that made New fail.
	InvalidTreeError struct {
		Diagnostics []Diagnostic
	}

	// App is a loaded tree ready to dispatch invocations.
	App struct {
		structure *Structure
		engine    *engine.Engine
	}

	// Option configures New.
	Option func(*options)

	options struct {
		program     string
		version     string
		handlers    Handlers
		loader      engine.Loader
		renderer    Renderer
		logger      *slog.Logger
		stdin       io.Reader
		stdout      io.Writer
		stderr      io.Writer
		environ     []string
		parallel    bool
		concurrency int
		extensions  []string
		strict      bool
	}
)

// Handler constructors, for Handlers tables.
var (
	Command    = engine.Command
	Env        = engine.Env
	Version    = engine.Version
	Help       = engine.Help
	Params     = engine.Params
	Use        = engine.Use
	OnError    = engine.OnError
	OnAnyError = engine.OnAnyError
	Handled    = engine.Handled
)

// Error implements the error interface.
func (e *InvalidTreeError) Error() string {
	if len(e.Diagnostics) == 1 {
		return fmt.Sprintf("%s: %s", ErrInvalidTree, e.Diagnostics[0])
	}
	return fmt.Sprintf("%s: %d errors, first: %s", ErrInvalidTree, len(e.Diagnostics), e.Diagnostics[0])
}

// Unwrap returns ErrInvalidTree for errors.Is() compatibility.
func (e *InvalidTreeError) Unwrap() error { return ErrInvalidTree }

// WithProgram sets the program name shown in help and messages.
func WithProgram(name string) Option { return func(o *options) { o.program = name } }

// WithVersion sets the version printed when the tree has no version handler.
func WithVersion(v string) Option { return func(o *options) { o.version = v } }

// WithHandlers registers the handlers behind .go handler files.
func WithHandlers(h Handlers) Option { return func(o *options) { o.handlers = h } }

// WithLoader replaces the default loader (.cue declarative files plus the
// Handlers table for .go files).
func WithLoader(l engine.Loader) Option { return func(o *options) { o.loader = l } }

// WithRenderer replaces the plain-text renderer.
func WithRenderer(r Renderer) Option { return func(o *options) { o.renderer = r } }

// WithLogger sets the logger for discovery and dispatch.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithStdio sets the streams handlers read and write.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(o *options) { o.stdin, o.stdout, o.stderr = stdin, stdout, stderr }
}

// WithEnviron replaces os.Environ() as the process environment.
func WithEnviron(env []string) Option { return func(o *options) { o.environ = env } }

// WithParallelScan scans sibling directories concurrently, at most n at a
// time (0 means GOMAXPROCS).
func WithParallelScan(n int) Option {
	return func(o *options) { o.parallel, o.concurrency = true, n }
}

// WithExtensions sets the handler file extensions in priority order.
func WithExtensions(exts ...string) Option { return func(o *options) { o.extensions = exts } }

// WithStrict makes New fail when discovery reports error diagnostics.
func WithStrict() Option { return func(o *options) { o.strict = true } }

// Load discovers the tree at source, a directory or a manifest file.
func Load(ctx context.Context, source string, opts ...Option) (*Structure, error) {
	o := applyOptions(opts)
	return o.load(ctx, source)
}

// New loads the tree at source and prepares it for dispatch.
func New(ctx context.Context, source string, opts ...Option) (*App, error) {
	o := applyOptions(opts)
	st, err := o.load(ctx, source)
	if err != nil {
		return nil, err
	}
	return o.app(st)
}

// FromStructure prepares an already discovered tree for dispatch.
func FromStructure(st *Structure, opts ...Option) (*App, error) {
	return applyOptions(opts).app(st)
}

// Run dispatches args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	return a.engine.Dispatch(ctx, args)
}

// Structure returns the dispatched tree.
func (a *App) Structure() *Structure { return a.structure }

// Diagnostics returns the discovery findings.
func (a *App) Diagnostics() []Diagnostic { return a.structure.Diagnostics }

func applyOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) load(ctx context.Context, source string) (*Structure, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() && manifest.IsManifestPath(source) {
		m, err := manifest.Read(source)
		if err != nil {
			return nil, fmt.Errorf("read manifest %s: %w", source, err)
		}
		return m.Structure(nil)
	}

	scanOpts := []discovery.Option{discovery.WithLogger(o.logger)}
	if len(o.extensions) > 0 {
		scanOpts = append(scanOpts, discovery.WithExtensions(o.extensions...))
	}
	if o.parallel {
		scanOpts = append(scanOpts, discovery.WithConcurrency(scanConcurrency(o.concurrency)))
		return discovery.ScanParallel(ctx, source, scanOpts...)
	}
	return discovery.Scan(ctx, source, scanOpts...)
}

func (o *options) app(st *Structure) (*App, error) {
	if o.strict && st.HasErrors() {
		var errs []Diagnostic
		for _, d := range st.Diagnostics {
			if d.Severity == discovery.SeverityError {
				errs = append(errs, d)
			}
		}
		return nil, &InvalidTreeError{Diagnostics: errs}
	}

	l := o.loader
	if l == nil {
		l = loader.New(st.Root, o.handlers, loader.WithCUELogger(o.logger))
	}

	engineOpts := []engine.Option{engine.WithLogger(o.logger)}
	if o.program != "" {
		engineOpts = append(engineOpts, engine.WithProgram(o.program))
	}
	if o.version != "" {
		engineOpts = append(engineOpts, engine.WithVersion(o.version))
	}
	if o.renderer != nil {
		engineOpts = append(engineOpts, engine.WithRenderer(o.renderer))
	}
	if o.stdin != nil || o.stdout != nil || o.stderr != nil {
		engineOpts = append(engineOpts, engine.WithStdio(
			readerOr(o.stdin, os.Stdin),
			writerOr(o.stdout, os.Stdout),
			writerOr(o.stderr, os.Stderr)))
	}
	if o.environ != nil {
		engineOpts = append(engineOpts, engine.WithEnviron(o.environ))
	}

	return &App{structure: st, engine: engine.New(st, l, engineOpts...)}, nil
}

// scanConcurrency resolves the parallel scan limit; n <= 0 means GOMAXPROCS.
func scanConcurrency(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

func readerOr(r, def io.Reader) io.Reader {
	if r == nil {
		return def
	}
	return r
}

func writerOr(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
