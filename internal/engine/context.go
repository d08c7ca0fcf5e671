// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"io"
	"log/slog"

	"github.com/cmdtree/cmdtree/internal/discovery"
)

// Context is the record threaded through one invocation. The engine creates
// it after matching and folds each handler's result into it; it is never
// shared between invocations.
type Context struct {
	// InvocationID uniquely identifies this dispatch in logs and scripts.
	InvocationID string
	// Program is the program name used in messages.
	Program string
	// CommandPath is the matched command path; empty before matching.
	CommandPath string
	// Command is the matched command; nil before matching.
	Command *discovery.CommandNode

	// Args are the positional tokens left after the command path.
	Args []string
	// Options are the named options, keyed without dashes.
	Options map[string]string
	// Params are the tokens bound to dynamic segments.
	Params map[string]string
	// RawEnv is the process environment.
	RawEnv map[string]string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Env is set by the env handler.
	Env map[string]string
	// Version is set by the version handler.
	Version string
	// HasMiddleware is true once a middleware handler has been folded.
	HasMiddleware bool
	// Help is the help text set by the help handler.
	Help string
	// ValidatedData is set by the params handler after validation.
	ValidatedData map[string]any
	// ErrorHandler is true when the command has its own error handler.
	ErrorHandler bool
	// GlobalErrorHandler is true when the root has a global error handler.
	GlobalErrorHandler bool
}

// Option returns a named option and whether it was given.
func (c *Context) Option(name string) (string, bool) {
	v, ok := c.Options[name]
	return v, ok
}

// Param returns the token bound to a dynamic segment.
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// Value returns a validated parameter.
func (c *Context) Value(name string) (any, bool) {
	v, ok := c.ValidatedData[name]
	return v, ok
}

// Getenv looks name up in the env handler's output first, then the raw
// process environment.
func (c *Context) Getenv(name string) string {
	if v, ok := c.Env[name]; ok {
		return v
	}
	return c.RawEnv[name]
}
