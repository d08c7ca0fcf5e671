// SPDX-License-Identifier: MPL-2.0

// Package match resolves invocation tokens to a discovered command.
//
// Literal segments must equal their token; dynamic segments bind any token.
// The command with the most segments wins, so "user create x" resolves to
// user/create with one leftover token rather than to user. Ties go to the
// command that sorts first in the Structure, which puts literal routes ahead
// of dynamic ones. An alias replaces a command's last segment and never an
// earlier one; an alias match is used only when no direct match is at least
// as long.
package match
