// SPDX-License-Identifier: MPL-2.0

// Package discovery turns a command directory tree into a Structure.
//
// The scan root holds global handler files (env, version, middleware, error).
// Every subdirectory that contains a command file becomes a command; its path is
// the chain of directory names from the root, and bracketed names such as [id]
// become dynamic segments. Sibling params, help and error files attach to the
// command in the same directory only.
//
// Scanning never fails on bad content. Unreadable directories, duplicate or
// orphaned handler files, broken metadata and alias collisions are reported as
// Diagnostics on the Structure so the CLI layer decides how to render them.
//
// File organization:
//   - diagnostic.go: Diagnostic, Severity and DiagnosticCode
//   - structure.go: Structure, CommandNode, Segment and HandlerEntry
//   - scan.go: Scan, ScanParallel and the shared directory walk
//   - collisions.go: alias collision and dependency checks run after the walk
package discovery
