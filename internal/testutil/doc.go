// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that build command trees on
// disk and adjust the process environment.
package testutil
