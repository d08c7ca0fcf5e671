// SPDX-License-Identifier: MPL-2.0

// Package params extracts and validates command parameters.
//
// A Contract declares one Field per parameter: where its raw value comes from
// (a positional index, a named option, or both) and its type. A named option
// overrides the positional token, which overrides the declared default; the
// same precedence applies everywhere.
//
// Without a Schema, each value is coerced to its declared type. With a Schema,
// the fields only assemble the raw data and the schema decides what is valid.
// Validate never panics and never returns a Go error: every problem is an
// Issue on the Result.
package params
