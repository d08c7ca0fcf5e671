// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmdtree/cmdtree/internal/issue"
	"github.com/cmdtree/cmdtree/internal/manifest"
)

func newManifestCommand(app *App) *cobra.Command {
	var (
		formatFlag string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "manifest [root]",
		Short: "Export a scanned tree as a manifest",
		Long: `Export a scanned tree as a manifest.

A manifest records the commands, handler files and diagnostics of a tree so
it can be dispatched without scanning, or fed to code generation. With -o
the format follows the file extension unless --format is given, and the
root is stored relative to the manifest.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _, err := app.treeSource(firstArg(args), nil, false)
			if err != nil {
				return err
			}
			st, err := app.loadTree(cmd.Context(), source)
			if err != nil {
				return err
			}
			m := manifest.FromStructure(st)

			if output == "" {
				format, err := manifest.ParseFormat(formatFlag)
				if err != nil {
					return err
				}
				return manifest.Encode(app.stdout, m, format)
			}

			if cmd.Flags().Changed("format") {
				want, err := manifest.ParseFormat(formatFlag)
				if err != nil {
					return err
				}
				if got, _ := manifest.FormatFromPath(output); got != want {
					return issue.NewErrorContext().
						WithOperation("write manifest").
						WithResource(output).
						WithSuggestion(fmt.Sprintf("Name the file with a .%s extension", want)).
						WithGuide(issue.ManifestInvalidId).
						Wrap(fmt.Errorf("extension does not match format %s", want)).
						BuildError()
				}
			}
			if err := manifest.Write(output, m); err != nil {
				return issue.WrapWithContext(err, "write manifest", output)
			}
			fmt.Fprintf(app.stderr, "%s wrote %s (%d commands)\n", SuccessStyle.Render("✓"), output, len(m.Commands))
			return nil
		},
	}

	formats := make([]string, 0, len(manifest.Formats()))
	for _, f := range manifest.Formats() {
		formats = append(formats, string(f))
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", string(manifest.FormatYAML), "manifest format: "+strings.Join(formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
