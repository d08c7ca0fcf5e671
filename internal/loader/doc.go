// SPDX-License-Identifier: MPL-2.0

// Package loader turns discovered handler files into engine handlers.
//
// Declarative .cue files are validated against an embedded schema and their
// shell scripts run through the runtime package. Programmatic .go files cannot
// be loaded at run time, so the embedding program registers their handlers in
// a Table keyed by root-relative path. A Mux dispatches on file extension.
package loader
