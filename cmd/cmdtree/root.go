// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the cmdtree command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "cmdtree",
		Short: "Run command trees defined by directories",
		Long: TitleStyle.Render("cmdtree") + SubtitleStyle.Render(" - run command trees defined by directories") + `

A command tree is a directory whose subdirectories are commands. Each
command directory holds a command file and optional params, help and
error files; the root holds env, version, middleware and error files
that apply to every command. Bracketed directories such as [id] bind
one word of the invocation.

` + SubtitleStyle.Render("Examples:") + `
  cmdtree run ./commands hello --name Ada   Dispatch an invocation
  cmdtree scan ./commands                   List commands and handlers
  cmdtree check ./commands                  Report tree errors
  cmdtree manifest ./commands -o tree.yaml  Export the scanned tree
  cmdtree config show                       Show the configuration`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.initialize(cmd.Context(), cmd.Flags().Changed("verbose"))
		},
	}

	root.SetIn(app.stdin)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/cmdtree/config.cue)")

	root.AddCommand(
		newRunCommand(app),
		newScanCommand(app),
		newCheckCommand(app),
		newManifestCommand(app),
		newConfigCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process. It is called by main.main().
func Execute() {
	os.Exit(run(context.Background(), NewApp(Dependencies{})))
}

// run executes the root command and returns the exit code.
func run(ctx context.Context, app *App) int {
	err := fang.Execute(
		ctx,
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			app.renderError(w, err)
		}),
	)
	return exitCode(err)
}
