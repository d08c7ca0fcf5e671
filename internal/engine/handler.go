// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"

	"github.com/cmdtree/cmdtree/internal/params"
	"github.com/cmdtree/cmdtree/internal/registry"
)

type (
	// Handler is a loaded handler file. The set of implementations is closed:
	// each kind has its own type, and fold merges that kind's result into the
	// invocation.
	Handler interface {
		Kind() registry.Kind
		fold(ctx context.Context, inv *invocation) error
	}

	// Provider yields a handler's value for one invocation. Plain values and
	// factories are both normalized to a Provider at load time.
	Provider[T any] func(ctx context.Context, c *Context) (T, error)

	// CommandFunc is a command body.
	CommandFunc func(ctx context.Context, c *Context) error

	// ErrorFunc handles a failed invocation. Returning nil marks err as handled.
	ErrorFunc func(ctx context.Context, c *Context, err error) error

	// Middleware wraps the command call. It must call next to continue the
	// chain; the first middleware in a list is the outermost.
	Middleware func(ctx context.Context, c *Context, next func(context.Context) error) error

	// GlobalErrorHandler is the root-level fallback error handler.
	GlobalErrorHandler struct{ Provide Provider[ErrorFunc] }
	// EnvHandler yields the validated environment exposed as Context.Env.
	EnvHandler struct{ Provide Provider[map[string]string] }
	// VersionHandler yields the program version.
	VersionHandler struct{ Provide Provider[string] }
	// MiddlewareHandler yields the middlewares wrapping every command.
	MiddlewareHandler struct{ Provide Provider[[]Middleware] }
	// HelpHandler yields a command's help text (markdown).
	HelpHandler struct{ Provide Provider[string] }
	// ParamsHandler yields a command's parameter contract.
	ParamsHandler struct{ Provide Provider[params.Contract] }
	// CommandHandler yields the command body.
	CommandHandler struct{ Provide Provider[CommandFunc] }
	// ErrorHandler is a command-scoped error handler.
	ErrorHandler struct{ Provide Provider[ErrorFunc] }
)

// Static returns a Provider that always yields v.
func Static[T any](v T) Provider[T] {
	return func(context.Context, *Context) (T, error) { return v, nil }
}

// Factory returns a Provider that calls fn once per invocation.
func Factory[T any](fn func(ctx context.Context, c *Context) (T, error)) Provider[T] {
	return Provider[T](fn)
}

// Lazy returns a Provider for a factory that needs no context.
func Lazy[T any](fn func() (T, error)) Provider[T] {
	return func(context.Context, *Context) (T, error) { return fn() }
}

// get calls p, treating a nil provider as a programming error in the handler file.
func (p Provider[T]) get(ctx context.Context, c *Context) (T, error) {
	if p == nil {
		var zero T
		return zero, fmt.Errorf("%w: nil provider", ErrHandler)
	}
	return p(ctx, c)
}

// Command is shorthand for a static command handler.
func Command(fn CommandFunc) *CommandHandler { return &CommandHandler{Provide: Static(fn)} }

// Env is shorthand for a static env handler.
func Env(vars map[string]string) *EnvHandler { return &EnvHandler{Provide: Static(vars)} }

// Version is shorthand for a static version handler.
func Version(v string) *VersionHandler { return &VersionHandler{Provide: Static(v)} }

// Help is shorthand for a static help handler.
func Help(text string) *HelpHandler { return &HelpHandler{Provide: Static(text)} }

// Params is shorthand for a static params handler.
func Params(c params.Contract) *ParamsHandler { return &ParamsHandler{Provide: Static(c)} }

// Use is shorthand for a static middleware handler.
func Use(mws ...Middleware) *MiddlewareHandler { return &MiddlewareHandler{Provide: Static(mws)} }

// OnError is shorthand for a static command error handler.
func OnError(fn ErrorFunc) *ErrorHandler { return &ErrorHandler{Provide: Static(fn)} }

// OnAnyError is shorthand for a static global error handler.
func OnAnyError(fn ErrorFunc) *GlobalErrorHandler {
	return &GlobalErrorHandler{Provide: Static(fn)}
}

func (*GlobalErrorHandler) Kind() registry.Kind { return registry.KindGlobalError }
func (*EnvHandler) Kind() registry.Kind         { return registry.KindEnv }
func (*VersionHandler) Kind() registry.Kind     { return registry.KindVersion }
func (*MiddlewareHandler) Kind() registry.Kind  { return registry.KindMiddleware }
func (*HelpHandler) Kind() registry.Kind        { return registry.KindHelp }
func (*ParamsHandler) Kind() registry.Kind      { return registry.KindParams }
func (*CommandHandler) Kind() registry.Kind     { return registry.KindCommand }
func (*ErrorHandler) Kind() registry.Kind       { return registry.KindError }

func (h *GlobalErrorHandler) fold(ctx context.Context, inv *invocation) error {
	fn, err := h.Provide.get(ctx, inv.c)
	if err != nil {
		return err
	}
	inv.globalErrorFunc = fn
	return nil
}

func (h *EnvHandler) fold(ctx context.Context, inv *invocation) error {
	vars, err := h.Provide.get(ctx, inv.c)
	if err != nil {
		return err
	}
	inv.c.Env = vars
	return nil
}

func (h *VersionHandler) fold(ctx context.Context, inv *invocation) error {
	v, err := h.Provide.get(ctx, inv.c)
	if err != nil {
		return err
	}
	inv.c.Version = v
	if inv.versionRequested() {
		inv.engine.renderer.Version(inv.c.Stdout, v)
		inv.finish()
	}
	return nil
}

func (h *MiddlewareHandler) fold(ctx context.Context, inv *invocation) error {
	mws, err := h.Provide.get(ctx, inv.c)
	if err != nil {
		return err
	}
	inv.c.HasMiddleware = true
	for _, mw := range mws {
		inv.middlewares = append(inv.middlewares, boundMiddleware{fn: mw, file: inv.file})
	}
	return nil
}

func (h *HelpHandler) fold(ctx context.Context, inv *invocation) error {
	text, err := h.Provide.get(ctx, inv.c)
	if err != nil {
		return err
	}
	inv.c.Help = text
	if inv.helpRequested() {
		inv.engine.renderer.Markdown(inv.c.Stdout, text)
		inv.finish()
	}
	return nil
}

func (h *ParamsHandler) fold(ctx context.Context, inv *invocation) error {
	contract, err := h.Provide.get(ctx, inv.c)
	if err != nil {
		return err
	}
	if err := contract.Check(); err != nil {
		return err
	}
	inv.contract = &contract
	inv.transition(StateValidating)
	res := params.Validate(inv.c.Args, inv.c.Options, contract)
	if !res.Success {
		return res.Error
	}
	inv.c.ValidatedData = res.Data
	return nil
}

func (h *CommandHandler) fold(ctx context.Context, inv *invocation) error {
	fn, err := h.Provide.get(ctx, inv.c)
	if err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("%w: nil command function", ErrHandler)
	}
	inv.command = boundCommand{fn: fn, file: inv.file}
	inv.transition(StateExecuting)
	return inv.execute(ctx)
}

func (h *ErrorHandler) fold(ctx context.Context, inv *invocation) error {
	fn, err := h.Provide.get(ctx, inv.c)
	if err != nil {
		return err
	}
	inv.errorFunc = fn
	return nil
}
