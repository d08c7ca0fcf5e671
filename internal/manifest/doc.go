// SPDX-License-Identifier: MPL-2.0

// Package manifest serializes a discovered command tree.
//
// A manifest lists every command with its segments, handler files and
// metadata, plus the global handlers and the scan diagnostics. File paths are
// stored relative to the manifest root so a tree can be checked in next to
// its manifest. Code generators read manifests; `cmdtree run` accepts one in
// place of a directory to skip the scan.
//
// Manifests are written as YAML, JSON or TOML.
package manifest
