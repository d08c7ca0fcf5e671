// SPDX-License-Identifier: MPL-2.0

// Package config loads cmdtree settings using Viper with CUE as the file format.
//
// Settings come from, lowest precedence first: built-in defaults, the config
// file (config.cue in the platform config directory, or ./config.cue, or an
// explicit path), and CMDTREE_* environment variables ("scan.concurrency" is
// CMDTREE_SCAN_CONCURRENCY). The file is validated against the embedded
// #Config schema before it is merged.
package config
