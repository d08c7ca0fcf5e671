// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"

	"github.com/cmdtree/cmdtree/internal/config"
	"github.com/cmdtree/cmdtree/internal/issue"
)

type (
	// App wires CLI services and shared state. Every cobra command receives
	// the App and reads configuration, streams and the logger from it.
	App struct {
		Config config.Provider

		stdin   io.Reader
		stdout  io.Writer
		stderr  io.Writer
		environ []string

		// configPath is the --config flag value.
		configPath string
		// verbose is the --verbose flag value, or ui.verbose from config.
		verbose bool

		cfg     *config.Config
		cfgFile string
		logger  *slog.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  config.Provider
		Stdin   io.Reader
		Stdout  io.Writer
		Stderr  io.Writer
		Environ []string
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:  deps.Config,
		stdin:   deps.Stdin,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
		environ: deps.Environ,
		cfg:     config.DefaultConfig(),
		logger:  slog.Default(),
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdin == nil {
		app.stdin = os.Stdin
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.environ == nil {
		app.environ = os.Environ()
	}
	return app
}

// loadOptions returns the config loading inputs for this process.
func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.configPath, Environ: a.environ}
}

// initialize loads configuration and installs the process logger. A broken
// config file is fatal only when it was named explicitly; otherwise the
// defaults apply and a warning is printed.
func (a *App) initialize(ctx context.Context, verboseSet bool) error {
	opts := a.loadOptions()
	cfg, err := a.Config.Load(ctx, opts)
	if err != nil {
		if a.configPath != "" {
			return err
		}
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, a.verbose))
		cfg = config.DefaultConfig()
	}
	a.cfg = cfg
	if path, err := config.ConfigFile(opts); err == nil {
		a.cfgFile = path
	}
	if !verboseSet {
		a.verbose = cfg.UI.Verbose
	}

	a.logger = newLogger(a.stderr, cfg.Log, a.verbose)
	slog.SetDefault(a.logger)
	return nil
}

// newLogger builds the process logger: a charmbracelet/log handler behind
// slog. Verbose mode lowers the level to debug.
func newLogger(w io.Writer, lc config.LogConfig, verbose bool) *slog.Logger {
	level, err := charmlog.ParseLevel(string(lc.Level))
	if err != nil {
		level = charmlog.WarnLevel
	}
	if verbose {
		level = charmlog.DebugLevel
	}

	formatter := charmlog.TextFormatter
	switch lc.Format {
	case config.LogFormatJSON:
		formatter = charmlog.JSONFormatter
	case config.LogFormatLogfmt:
		formatter = charmlog.LogfmtFormatter
	}

	return slog.New(charmlog.NewWithOptions(w, charmlog.Options{
		Level:     level,
		Formatter: formatter,
		Prefix:    config.AppName,
	}))
}

// renderError is the fang error handler. Errors that were already reported
// (an ExitError without a cause) print nothing; actionable errors print their
// suggestions and, in verbose mode, their guide.
func (a *App) renderError(w io.Writer, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))
	if !a.verbose {
		return
	}
	if ae, ok := issue.As(err); ok && ae.Guide != 0 {
		if g := issue.Get(ae.Guide); g != nil {
			if rendered, rerr := g.Render(a.glamourStyle()); rerr == nil {
				fmt.Fprint(w, rendered)
			}
		}
	}
}

// formatErrorForDisplay formats an error for user display. Actionable errors
// use their Format method; verbose mode shows the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	if ae, ok := issue.As(err); ok {
		return ae.Format(verbose)
	}
	return err.Error()
}

// exitCode maps the error returned by the root command to a process exit
// code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code != 0 {
		return exitErr.Code
	}
	return 1
}
