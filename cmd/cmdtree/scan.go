// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/engine"
	"github.com/cmdtree/cmdtree/internal/manifest"
	"github.com/cmdtree/cmdtree/internal/registry"
	"github.com/cmdtree/cmdtree/internal/watch"
)

func newScanCommand(app *App) *cobra.Command {
	var (
		asJSON  bool
		watchFS bool
	)

	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "List the commands, handlers and diagnostics of a tree",
		Long: `List the commands, handlers and diagnostics of a tree.

With --watch the tree is listed again whenever a handler file or a
directory below the root changes, until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _, err := app.treeSource(firstArg(args), nil, false)
			if err != nil {
				return err
			}
			show := func(ctx context.Context) error {
				st, err := app.loadTree(ctx, source)
				if err != nil {
					return err
				}
				if asJSON {
					return manifest.Encode(app.stdout, manifest.FromStructure(st), manifest.FormatJSON)
				}
				printStructure(app.stdout, st)
				return nil
			}
			if err := show(cmd.Context()); err != nil || !watchFS {
				return err
			}
			return app.watchTree(cmd.Context(), source, show)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as a JSON manifest")
	cmd.Flags().BoolVarP(&watchFS, "watch", "w", false, "rescan whenever the tree changes")
	return cmd
}

// watchTree calls show after every debounced change below source until ctx
// is canceled. Scan failures are reported and watching continues.
func (a *App) watchTree(ctx context.Context, source string, show func(context.Context) error) error {
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		return fmt.Errorf("--watch needs a tree directory, got %s", source)
	}

	exts := a.cfg.Scan.Extensions
	if len(exts) == 0 {
		exts = discovery.DefaultExtensions()
	}
	w, err := watch.New(watch.Config{
		Root:       source,
		Extensions: exts,
		Logger:     a.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(a.stderr, "\n%s %s\n", WarningStyle.Render("changed:"), strings.Join(changed, ", "))
			if err := show(ctx); err != nil {
				a.renderError(a.stderr, err)
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "%s %s\n", SubtitleStyle.Render("watching"), source)
	return w.Run(ctx)
}

func newCheckCommand(app *App) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check [root]",
		Short: "Verify the handler catalog and report tree errors",
		Long: `Verify the handler catalog and report tree errors.

check rebuilds the handler catalog from its definitions, scans the tree
and prints every diagnostic. It exits 1 when any diagnostic is an error,
or any diagnostic at all with --strict.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := registry.NewCatalog(registry.Default().List(registry.ScopeAll)...)
			if err != nil {
				return fmt.Errorf("handler catalog: %w", err)
			}
			fmt.Fprintf(app.stdout, "%s handler catalog: %d kinds\n", SuccessStyle.Render("✓"), len(catalog.Kinds()))

			source, _, err := app.treeSource(firstArg(args), nil, false)
			if err != nil {
				return err
			}
			st, err := app.loadTree(cmd.Context(), source)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s scanned %s: %d commands\n", SuccessStyle.Render("✓"), st.Root, len(st.Commands))

			if len(st.Diagnostics) == 0 {
				fmt.Fprintf(app.stdout, "%s no diagnostics\n", SuccessStyle.Render("✓"))
				return nil
			}
			printDiagnostics(app.stdout, st.Diagnostics)
			if st.HasErrors() || strict {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on warnings too")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// printStructure writes the human-readable scan listing.
func printStructure(w io.Writer, st *discovery.Structure) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Root:"), st.Root)
	if st.Version != nil && st.Version.Version != "" {
		fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Version:"), st.Version.Version)
	}

	if kinds := st.GlobalKinds(); len(kinds) > 0 {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Global handlers:"), strings.Join(names, ", "))
	}

	fmt.Fprintln(w, "\n"+TitleStyle.Render("Commands:"))
	if len(st.Commands) == 0 {
		fmt.Fprintln(w, "  "+SubtitleStyle.Render("(none)"))
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range st.Commands {
		kinds := c.Kinds()
		names := make([]string, 0, len(kinds))
		for _, k := range kinds {
			if k != registry.KindCommand {
				names = append(names, string(k))
			}
		}
		extra := ""
		if aliases := c.Aliases(); len(aliases) > 0 {
			extra = "aliases: " + strings.Join(aliases, ", ")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", engine.DisplayPath(c.Path), strings.Join(names, ","), extra)
	}
	_ = tw.Flush()

	if len(st.Diagnostics) > 0 {
		fmt.Fprintln(w, "\n"+TitleStyle.Render("Diagnostics:"))
		printDiagnostics(w, st.Diagnostics)
	}
}
