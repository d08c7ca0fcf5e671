// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the cmdtree CLI.
//
// The root command loads configuration and installs the process logger;
// subcommands run a tree (run), inspect it (scan, check), export it
// (manifest) and manage configuration (config).
package cmd
