// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmdtree/cmdtree/internal/config"
)

// newConfigCommand creates the `cmdtree config` command tree. Every
// subcommand reads the configuration the root command resolved.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cmdtree configuration",
		Long: `Manage cmdtree configuration.

Configuration is read from --config, else config.cue in the config
directory, else ./config.cue:
  - Linux: $XDG_CONFIG_HOME/cmdtree/config.cue (~/.config/cmdtree)
  - macOS: ~/Library/Application Support/cmdtree/config.cue
  - Windows: %APPDATA%\cmdtree\config.cue

Every key can be overridden from the environment: CMDTREE_LOG_LEVEL sets
log.level.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			showConfig(app)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprint(app.stdout, config.GenerateCUE(app.cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", dir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", displayConfigFile(app.cfgFile))
			return nil
		},
	})

	return cfgCmd
}

func displayConfigFile(path string) string {
	if path == "" {
		return "(using defaults)"
	}
	return path
}

func showConfig(app *App) {
	cfg := app.cfg
	w := app.stdout
	key := CmdStyle.Render
	value := SuccessStyle.Render

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s\n", key("Config file"), SubtitleStyle.Render(displayConfigFile(app.cfgFile)))
	fmt.Fprintln(w)

	root := cfg.Root
	if root == "" {
		root = "(none)"
	}
	fmt.Fprintf(w, "%s: %s\n", key("root"), value(root))

	fmt.Fprintf(w, "%s:\n", key("program"))
	fmt.Fprintf(w, "  name: %s\n", value(cfg.Program.Name))
	fmt.Fprintf(w, "  version: %s\n", value(cfg.Program.Version))

	fmt.Fprintf(w, "%s:\n", key("scan"))
	fmt.Fprintf(w, "  parallel: %s\n", value(strconv.FormatBool(cfg.Scan.Parallel)))
	fmt.Fprintf(w, "  concurrency: %s\n", value(strconv.Itoa(cfg.Scan.Concurrency)))
	fmt.Fprintf(w, "  extensions: %s\n", value(strings.Join(cfg.Scan.Extensions, ", ")))

	fmt.Fprintf(w, "%s:\n", key("log"))
	fmt.Fprintf(w, "  level: %s\n", value(string(cfg.Log.Level)))
	fmt.Fprintf(w, "  format: %s\n", value(string(cfg.Log.Format)))

	fmt.Fprintf(w, "%s:\n", key("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", value(string(cfg.UI.ColorScheme)))
	fmt.Fprintf(w, "  verbose: %s\n", value(strconv.FormatBool(cfg.UI.Verbose)))
}
