// SPDX-License-Identifier: MPL-2.0

// Package runtime runs the shell scripts of declarative handler files.
//
// Scripts are interpreted in-process by mvdan.cc/sh, so they behave the same
// on every platform that has the external programs they call. Each run gets
// an explicit environment built from the process environment plus the
// invocation's CMDTREE_* variables; nothing leaks between runs.
package runtime
