// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/issue"
	"github.com/cmdtree/cmdtree/internal/manifest"
	"github.com/cmdtree/cmdtree/pkg/cmdtree"
)

func newRunCommand(app *App) *cobra.Command {
	var (
		rootFlag string
		program  string
	)

	cmd := &cobra.Command{
		Use:   "run [flags] <root|manifest> [args...]",
		Short: "Dispatch one invocation against a command tree",
		Long: `Dispatch one invocation against a command tree.

The first argument is the tree: a directory, or a manifest written by
'cmdtree manifest'. It may be omitted when --root or the 'root' config
key names the tree. Everything after it is passed to the tree, so
'cmdtree run ./commands deploy --help' shows the help of 'deploy'.

Only declarative (.cue) handler files can be run from the CLI; trees
with .go handlers are run by the program that registers them.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, rest, err := app.treeSource(rootFlag, args, true)
			if err != nil {
				return err
			}
			code, err := app.dispatch(cmd.Context(), source, program, rest)
			if err != nil {
				return err
			}
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	// Flags after the tree belong to the tree.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVarP(&rootFlag, "root", "C", "", "command tree directory or manifest (default from config)")
	cmd.Flags().StringVar(&program, "program", "", "program name shown in help and messages (default from config)")
	return cmd
}

// treeSource picks the tree a command works on: --root, then the 'root'
// config key, then the first argument (when takesFirstArg), then the working
// directory. It returns the remaining arguments.
func (a *App) treeSource(rootFlag string, args []string, takesFirstArg bool) (string, []string, error) {
	source := rootFlag
	if source == "" {
		source = a.cfg.Root
	}
	if source == "" && len(args) > 0 && takesFirstArg {
		source, args = args[0], args[1:]
	}
	if source == "" {
		if !takesFirstArg {
			source = "."
		} else {
			return "", nil, issue.NewErrorContext().
				WithOperation("resolve command root").
				WithSuggestion("Pass the tree as the first argument: cmdtree run ./commands <command>").
				WithSuggestion("Set 'root' in the config file or export CMDTREE_ROOT").
				WithGuide(issue.RootNotFoundId).
				Wrap(errors.New("no command root given")).
				BuildError()
		}
	}

	info, err := os.Stat(source)
	switch {
	case err != nil:
		return "", nil, issue.NewErrorContext().
			WithOperation("resolve command root").
			WithResource(source).
			WithSuggestion("Check the path; it must be a directory or a manifest file").
			WithGuide(issue.RootNotFoundId).
			Wrap(err).
			BuildError()
	case !info.IsDir() && !manifest.IsManifestPath(source):
		return "", nil, issue.NewErrorContext().
			WithOperation("resolve command root").
			WithResource(source).
			WithSuggestion("Manifests end in .yaml, .yml, .json or .toml").
			WithGuide(issue.RootNotFoundId).
			Wrap(errors.New("not a directory or manifest")).
			BuildError()
	}
	return source, args, nil
}

// treeOptions returns the cmdtree options shared by every subcommand.
func (a *App) treeOptions(program string) []cmdtree.Option {
	cfg := a.cfg
	if program == "" {
		program = cfg.Program.Name
	}
	opts := []cmdtree.Option{
		cmdtree.WithProgram(program),
		cmdtree.WithVersion(cfg.Program.Version),
		cmdtree.WithLogger(a.logger),
		cmdtree.WithStdio(a.stdin, a.stdout, a.stderr),
		cmdtree.WithEnviron(a.environ),
	}
	if len(cfg.Scan.Extensions) > 0 {
		opts = append(opts, cmdtree.WithExtensions(cfg.Scan.Extensions...))
	}
	if cfg.Scan.Parallel {
		opts = append(opts, cmdtree.WithParallelScan(cfg.Scan.Concurrency))
	}
	return opts
}

// loadTree discovers the tree at source.
func (a *App) loadTree(ctx context.Context, source string) (*discovery.Structure, error) {
	st, err := cmdtree.Load(ctx, source, a.treeOptions("")...)
	if err != nil {
		guide := issue.ScanFailedId
		if manifest.IsManifestPath(source) {
			guide = issue.ManifestInvalidId
		}
		return nil, issue.NewErrorContext().
			WithOperation("load command tree").
			WithResource(source).
			WithGuide(guide).
			Wrap(err).
			BuildError()
	}
	return st, nil
}

// dispatch runs one invocation and returns its exit code. Trees with error
// diagnostics are refused before anything runs.
func (a *App) dispatch(ctx context.Context, source, program string, args []string) (int, error) {
	st, err := a.loadTree(ctx, source)
	if err != nil {
		return 0, err
	}

	opts := append(a.treeOptions(program), cmdtree.WithRenderer(a.renderer()), cmdtree.WithStrict())
	tree, err := cmdtree.FromStructure(st, opts...)
	if err != nil {
		var ite *cmdtree.InvalidTreeError
		if errors.As(err, &ite) {
			printDiagnostics(a.stderr, ite.Diagnostics)
		}
		return 0, issue.NewErrorContext().
			WithOperation("run command tree").
			WithResource(st.Root).
			WithSuggestion(fmt.Sprintf("Run 'cmdtree check %s' to list every finding", source)).
			WithGuide(issue.ScanFailedId).
			Wrap(err).
			BuildError()
	}
	for _, d := range tree.Diagnostics() {
		a.logger.Warn(d.Message, "code", d.Code, "path", d.Path)
	}
	return tree.Run(ctx, args), nil
}

// printDiagnostics writes one styled line per diagnostic.
func printDiagnostics(w io.Writer, diags []discovery.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s %s\n", severityStyle(d.Severity).Render(string(d.Severity)+":"), d.Code)
		if d.Path != "" {
			fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render(d.Path))
		}
		fmt.Fprintf(w, "  %s\n", d.Message)
		if d.Cause != nil {
			fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render(d.Cause.Error()))
		}
	}
}
