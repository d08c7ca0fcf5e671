// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing errors with remediation steps.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions; the catalog in this package holds longer Markdown guides that
// the CLI renders for known failure classes.
package issue
