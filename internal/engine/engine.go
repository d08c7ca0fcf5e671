// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/cmdtree/cmdtree/internal/argv"
	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/match"
	"github.com/cmdtree/cmdtree/internal/params"
	"github.com/cmdtree/cmdtree/internal/registry"
)

// DefaultVersion is printed by --version when nothing declares a version.
const DefaultVersion = "dev"

// Invocation states, in the order a successful dispatch visits them.
const (
	StateMatching       State = "MATCHING"
	StateLoadingGlobal  State = "LOADING_GLOBAL"
	StateLoadingCommand State = "LOADING_COMMAND"
	StateValidating     State = "VALIDATING"
	StateExecuting      State = "EXECUTING"
	StateDone           State = "DONE"
	StateError          State = "ERROR"
)

type (
	// State is a step of one dispatch.
	State string

	// Engine dispatches invocations against one scanned structure. It is safe
	// for concurrent use; each Dispatch gets its own Context.
	Engine struct {
		structure *discovery.Structure
		catalog   *registry.Catalog
		loader    *MemoLoader
		program   string
		version   string
		renderer  Renderer
		logger    *slog.Logger
		stdin     io.Reader
		stdout    io.Writer
		stderr    io.Writer
		environ   []string
		newID     func() string
	}

	// Option configures an Engine.
	Option func(*Engine)

	invocation struct {
		engine *Engine
		c      *Context
		logger *slog.Logger
		state  State

		// file is the handler file currently being folded.
		file string

		middlewares     []boundMiddleware
		command         boundCommand
		contract        *params.Contract
		errorFunc       ErrorFunc
		globalErrorFunc ErrorFunc

		// done is set once help or version output ends the dispatch.
		done bool
	}

	boundMiddleware struct {
		fn   Middleware
		file string
	}

	boundCommand struct {
		fn   CommandFunc
		file string
	}
)

// WithProgram sets the program name used in messages and help.
func WithProgram(name string) Option {
	return func(e *Engine) { e.program = name }
}

// WithVersion sets the version printed when no version handler exists.
func WithVersion(v string) Option {
	return func(e *Engine) { e.version = v }
}

// WithRenderer replaces PlainRenderer.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithLogger sets the logger for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStdio sets the streams handed to handlers.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Engine) {
		e.stdin, e.stdout, e.stderr = stdin, stdout, stderr
	}
}

// WithEnviron sets the raw environment ("KEY=value" pairs) instead of os.Environ.
func WithEnviron(env []string) Option {
	return func(e *Engine) { e.environ = env }
}

// WithInvocationIDs replaces the UUID generator.
func WithInvocationIDs(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an Engine for st. The loader is memoized unless it already is.
func New(st *discovery.Structure, loader Loader, opts ...Option) *Engine {
	e := &Engine{
		structure: st,
		catalog:   registry.Default(),
		loader:    Memoize(loader),
		program:   "cmdtree",
		renderer:  PlainRenderer{},
		logger:    slog.Default(),
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.environ == nil {
		e.environ = os.Environ()
	}
	return e
}

// Structure returns the structure the engine dispatches against.
func (e *Engine) Structure() *discovery.Structure { return e.structure }

// Dispatch runs one invocation and returns its exit code.
func (e *Engine) Dispatch(ctx context.Context, args []string) int {
	tokens := argv.Parse(args)
	c := &Context{
		InvocationID: e.newID(),
		Program:      e.program,
		Options:      tokens.Options,
		Params:       map[string]string{},
		RawEnv:       environMap(e.environ),
		Stdin:        e.stdin,
		Stdout:       e.stdout,
		Stderr:       e.stderr,
	}
	inv := &invocation{
		engine: e,
		c:      c,
		logger: e.logger.With("invocation", c.InvocationID),
	}
	c.Logger = inv.logger

	inv.transition(StateMatching)
	if len(tokens.Positionals) == 0 {
		return inv.dispatchBare(ctx)
	}

	res, err := match.Match(tokens.Positionals, e.structure)
	if err != nil {
		inv.transition(StateError)
		var nf *match.NotFoundError
		if errors.As(err, &nf) {
			e.renderer.UnknownCommand(c.Stderr, e.program, nf)
		} else {
			e.renderer.Error(c.Stderr, e.program, err)
		}
		return 1
	}
	c.Command = res.Command
	c.CommandPath = res.Command.Path
	c.Args = res.Rest
	c.Params = res.Params
	inv.logger.Debug("matched command", "command", c.CommandPath, "alias", res.ViaAlias, "args", len(c.Args))

	e.warmUp(ctx)

	if err := inv.loadGlobal(ctx); err != nil {
		return inv.fail(ctx, err)
	}
	if inv.done {
		return inv.finishOK()
	}
	if inv.versionRequested() {
		e.renderer.Version(c.Stdout, e.versionString())
		return inv.finishOK()
	}

	if err := inv.loadCommand(ctx); err != nil {
		return inv.fail(ctx, err)
	}
	return inv.finishOK()
}

// dispatchBare handles an invocation with no positional tokens.
func (inv *invocation) dispatchBare(ctx context.Context) int {
	e := inv.engine
	switch {
	case inv.versionRequested():
		if err := inv.loadGlobal(ctx); err != nil {
			return inv.fail(ctx, err)
		}
		if !inv.done {
			e.renderer.Version(inv.c.Stdout, e.versionString())
		}
		return inv.finishOK()
	case inv.helpRequested():
		e.renderer.ProgramHelp(inv.c.Stdout, e.programInfo())
		return inv.finishOK()
	default:
		e.renderer.ProgramHelp(inv.c.Stderr, e.programInfo())
		inv.transition(StateError)
		return 1
	}
}

func (inv *invocation) loadGlobal(ctx context.Context) error {
	inv.transition(StateLoadingGlobal)
	st := inv.engine.structure
	for _, kind := range st.GlobalKinds() {
		if kind == registry.KindGlobalError {
			inv.c.GlobalErrorHandler = true
			continue
		}
		entry, _ := st.Global(kind)
		if err := inv.step(ctx, entry); err != nil {
			return err
		}
		if inv.done {
			return nil
		}
	}
	return nil
}

func (inv *invocation) loadCommand(ctx context.Context) error {
	inv.transition(StateLoadingCommand)
	cmd := inv.c.Command
	helpChecked := false
	for _, kind := range cmd.Kinds() {
		def, ok := inv.engine.catalog.Get(kind)
		if !ok {
			continue
		}
		if !helpChecked && def.Order > registry.OrderHelp {
			helpChecked = true
			if inv.helpRequested() {
				inv.autoHelp(ctx)
				return nil
			}
		}
		if kind == registry.KindError {
			inv.c.ErrorHandler = true
			continue
		}
		if err := inv.step(ctx, inv.engine.commandEntry(cmd, def)); err != nil {
			return err
		}
		if inv.done {
			return nil
		}
	}
	if !helpChecked && inv.helpRequested() {
		inv.autoHelp(ctx)
	}
	return nil
}

// step loads one handler and folds it into the invocation.
func (inv *invocation) step(ctx context.Context, entry discovery.HandlerEntry) error {
	kind := entry.Definition.Kind
	if err := ctx.Err(); err != nil {
		return err
	}
	h, err := inv.load(ctx, entry)
	if err != nil {
		return err
	}

	inv.file = entry.FilePath
	err = protect(func() error { return h.fold(ctx, inv) })
	var (
		herr *HandlerError
		verr *params.ValidationError
	)
	if !errors.As(err, &herr) && errors.As(err, &verr) {
		return verr
	}
	return wrapHandler(kind, entry.FilePath, err)
}

func (inv *invocation) load(ctx context.Context, entry discovery.HandlerEntry) (Handler, error) {
	kind := entry.Definition.Kind
	inv.logger.Debug("loading handler", "kind", kind, "file", entry.FilePath)
	h, err := inv.engine.loader.Load(ctx, entry)
	if err != nil {
		return nil, wrapHandler(kind, entry.FilePath, err)
	}
	if h == nil {
		return nil, &HandlerError{Kind: kind, File: entry.FilePath, Err: ErrHandlerNotFound}
	}
	return h, nil
}

// execute runs the command through the middleware chain, outermost first.
func (inv *invocation) execute(ctx context.Context) error {
	cmd := inv.command
	next := func(ctx context.Context) error {
		return wrapHandler(registry.KindCommand, cmd.file, protect(func() error {
			return cmd.fn(ctx, inv.c)
		}))
	}
	for i := len(inv.middlewares) - 1; i >= 0; i-- {
		mw, inner := inv.middlewares[i], next
		next = func(ctx context.Context) error {
			return wrapHandler(registry.KindMiddleware, mw.file, protect(func() error {
				return mw.fn(ctx, inv.c, inner)
			}))
		}
	}
	return next(ctx)
}

// autoHelp prints help generated from metadata and, when a params handler
// is attached, its contract.
func (inv *invocation) autoHelp(ctx context.Context) {
	e := inv.engine
	cmd := inv.c.Command
	info := CommandInfo{Program: e.program, Command: cmd}
	if def, ok := e.catalog.Get(registry.KindParams); ok {
		if _, attached := cmd.Handler(registry.KindParams); attached {
			if h, err := inv.load(ctx, e.commandEntry(cmd, def)); err == nil {
				if ph, ok := h.(*ParamsHandler); ok {
					if contract, err := ph.Provide.get(ctx, inv.c); err == nil {
						info.Contract = &contract
					}
				}
			}
		}
	}
	e.renderer.CommandHelp(inv.c.Stdout, info)
	inv.finish()
}

// fail routes err to exactly one error handler and returns the exit code.
func (inv *invocation) fail(ctx context.Context, err error) int {
	inv.transition(StateError)
	e := inv.engine
	code := ExitCode(err)

	handled, herr := inv.handle(ctx, err)
	var override *HandledError
	if errors.As(herr, &override) {
		return override.Code
	}
	if herr != nil {
		fatal := &FatalError{Original: err, Err: herr}
		inv.logger.Error("error handler failed", "error", fatal)
		e.renderer.Error(inv.c.Stderr, e.program, err)
		e.renderer.Error(inv.c.Stderr, e.program, fmt.Errorf("%w: %w", ErrErrorHandlerFailed, herr))
		return 1
	}
	if !handled {
		inv.logger.Debug("unhandled error", "error", err, "exit_code", code)
		e.renderer.Error(inv.c.Stderr, e.program, err)
	}
	return code
}

// handle runs the command error handler, else the global one. It reports
// false when neither exists.
func (inv *invocation) handle(ctx context.Context, cause error) (bool, error) {
	e := inv.engine
	if cmd := inv.c.Command; cmd != nil {
		if _, ok := cmd.Handler(registry.KindError); ok {
			def, _ := e.catalog.Get(registry.KindError)
			return true, inv.runErrorHandler(ctx, e.commandEntry(cmd, def), cause, func() ErrorFunc { return inv.errorFunc })
		}
	}
	if entry, ok := e.structure.Global(registry.KindGlobalError); ok {
		return true, inv.runErrorHandler(ctx, entry, cause, func() ErrorFunc { return inv.globalErrorFunc })
	}
	return false, nil
}

func (inv *invocation) runErrorHandler(ctx context.Context, entry discovery.HandlerEntry, cause error, loaded func() ErrorFunc) error {
	inv.logger.Debug("running error handler", "kind", entry.Definition.Kind, "file", entry.FilePath)
	h, err := inv.load(ctx, entry)
	if err != nil {
		return err
	}
	inv.file = entry.FilePath
	if err := protect(func() error { return h.fold(ctx, inv) }); err != nil {
		return wrapHandler(entry.Definition.Kind, entry.FilePath, err)
	}
	fn := loaded()
	if fn == nil {
		return &HandlerError{Kind: entry.Definition.Kind, File: entry.FilePath, Err: errors.New("nil error function")}
	}
	return wrapHandler(entry.Definition.Kind, entry.FilePath, protect(func() error {
		return fn(ctx, inv.c, cause)
	}))
}

func (inv *invocation) transition(s State) {
	inv.state = s
	inv.logger.Debug("state transition", "state", string(s), "command", inv.c.CommandPath)
}

func (inv *invocation) finish() { inv.done = true }

func (inv *invocation) finishOK() int {
	inv.transition(StateDone)
	return 0
}

func (inv *invocation) versionRequested() bool { return inv.c.hasFlag("version", "v") }

func (inv *invocation) helpRequested() bool { return inv.c.hasFlag("help", "h") }

func (c *Context) hasFlag(names ...string) bool {
	for _, n := range names {
		if _, ok := c.Options[n]; ok {
			return true
		}
	}
	return false
}

func (e *Engine) warmUp(ctx context.Context) {
	var entries []discovery.HandlerEntry
	for _, kind := range warmKinds {
		if entry, ok := e.structure.Global(kind); ok {
			entries = append(entries, entry)
		}
	}
	if len(entries) > 0 {
		warm(ctx, e.loader, entries)
	}
}

func (e *Engine) commandEntry(cmd *discovery.CommandNode, def registry.Definition) discovery.HandlerEntry {
	if entry, ok := e.structure.Handlers[discovery.HandlerKey(cmd.Path, def.Kind)]; ok {
		return entry
	}
	file, _ := cmd.Handler(def.Kind)
	return discovery.HandlerEntry{FilePath: file, Definition: def, CommandPath: cmd.Path}
}

func (e *Engine) versionString() string {
	if v := e.structure.Version; v != nil && v.Version != "" {
		return v.Version
	}
	if e.version != "" {
		return e.version
	}
	return DefaultVersion
}

func (e *Engine) programInfo() ProgramInfo {
	return ProgramInfo{Name: e.program, Version: e.versionString(), Commands: e.structure.Commands}
}

func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}

func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}
