// SPDX-License-Identifier: MPL-2.0

// Package metadata defines the metadata extraction contract used by the
// scanner and a CUE implementation of it.
//
// A handler file may declare a `meta` block with a display name, description,
// usage examples, aliases and extra help text. Extraction is best-effort: the
// scanner turns extraction errors into warning diagnostics and keeps the command.
package metadata
