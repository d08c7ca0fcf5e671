// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrEmptyScript is returned for a script with no content.
var ErrEmptyScript = errors.New("script has no content to execute")

type (
	// Script is one shell script to run.
	Script struct {
		// Name identifies the script in parse errors, usually its handler file.
		Name   string
		Source string
		// Dir is the working directory; empty means the current one.
		Dir string
		// Env is the complete environment as KEY=value pairs.
		Env []string
		// Args become the positional parameters $1, $2, ...
		Args   []string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Shell runs scripts with the embedded POSIX shell interpreter.
	Shell struct {
		logger *slog.Logger
	}

	// ShellOption configures a Shell.
	ShellOption func(*Shell)
)

// WithLogger sets the logger used for script runs.
func WithLogger(l *slog.Logger) ShellOption {
	return func(s *Shell) { s.logger = l }
}

// NewShell creates a Shell.
func NewShell(opts ...ShellOption) *Shell {
	s := &Shell{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check parses source without running it.
func (s *Shell) Check(source, name string) error {
	_, err := parse(source, name)
	return err
}

// Run executes the script with its own streams.
func (s *Shell) Run(ctx context.Context, sc Script) *Result {
	return s.run(ctx, sc, sc.Stdin, sc.Stdout, sc.Stderr)
}

// Capture executes the script and returns its output in the Result. The
// script's Stdout and Stderr are ignored.
func (s *Shell) Capture(ctx context.Context, sc Script) *Result {
	var stdout, stderr bytes.Buffer
	res := s.run(ctx, sc, sc.Stdin, &stdout, &stderr)
	res.Output = stdout.String()
	res.ErrOutput = stderr.String()
	return res
}

func (s *Shell) run(ctx context.Context, sc Script, stdin io.Reader, stdout, stderr io.Writer) *Result {
	prog, err := parse(sc.Source, sc.Name)
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(sc.Env...)),
		interp.StdIO(stdin, stdout, stderr),
	}
	if sc.Dir != "" {
		opts = append(opts, interp.Dir(sc.Dir))
	}
	// "--" ends shell options, so tokens like "-v" stay positional.
	if len(sc.Args) > 0 {
		opts = append(opts, interp.Params(append([]string{"--"}, sc.Args...)...))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return &Result{ExitCode: 1, Error: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	s.logger.Debug("running script", "script", sc.Name, "dir", sc.Dir, "args", len(sc.Args))
	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &Result{ExitCode: ExitCode(status)}
		}
		return &Result{ExitCode: 1, Error: fmt.Errorf("script execution failed: %w", err)}
	}
	return &Result{}
}

func parse(source, name string) (*syntax.File, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptyScript
	}
	if name == "" {
		name = "script"
	}
	prog, err := syntax.NewParser().Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("script syntax error: %w", err)
	}
	return prog, nil
}
