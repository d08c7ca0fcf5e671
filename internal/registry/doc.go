// SPDX-License-Identifier: MPL-2.0

// Package registry is the static catalog of handler kinds.
//
// Every handler a command tree can declare (env, version, middleware, help,
// params, command, error and the global error handler) has one Definition with
// a fixed file name, scope and execution order. Orders are spaced in bands of
// one hundred so that a new kind can be slotted between two existing ones
// without renumbering.
//
// The catalog never changes at runtime. NewCatalog verifies its invariants once
// and Default panics if the built-in table breaks them; callers only read.
package registry
