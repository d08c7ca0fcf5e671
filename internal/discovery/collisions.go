// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"fmt"
	"slices"

	"github.com/cmdtree/cmdtree/internal/registry"
)

// checkDependencies validates the kinds available to cmd (the root's global
// kinds plus its own) against the catalog. Each missing dependency is an
// error diagnostic on the command directory.
func checkDependencies(catalog *registry.Catalog, globalKinds []registry.Kind, cmd *CommandNode) []Diagnostic {
	available := slices.Clone(globalKinds)
	for kind := range cmd.Handlers {
		available = append(available, kind)
	}

	report := catalog.ValidateDependencies(available)
	if report.Valid {
		return nil
	}

	diags := make([]Diagnostic, 0, len(report.Errors))
	for _, e := range report.Errors {
		diags = append(diags, NewDiagnosticWithCause(SeverityError, CodeHandlerDependencyMissing,
			fmt.Sprintf("command %q: %v", cmd.Path, e), cmd.Dir, e))
	}
	return diags
}

// checkAliasCollisions reports, as error diagnostics, every alias that can
// never be reached and every alias two commands compete for. Dynamic segments
// bind any token, so they are compared as wildcards:
//
//   - an alias is shadowed when another command binds the alias path with at
//     least as many segments, because direct matches win unless the alias is
//     strictly longer (user/[id] shadows alias "add" of user/create);
//   - two aliases collide when their paths have the same length and can bind
//     the same tokens (user/[id]/a and user/[uid]/b both aliased to "x").
//
// The command's own descendants are not counted; they extend the alias.
func checkAliasCollisions(cmds []*CommandNode) []Diagnostic {
	type aliasPath struct {
		cmd   *CommandNode
		alias string
		segs  []Segment
	}

	var paths []aliasPath
	for _, c := range cmds {
		last := len(c.Segments) - 1
		for _, alias := range c.Aliases() {
			if !c.Segments[last].Dynamic && alias == c.Segments[last].Value {
				continue
			}
			segs := slices.Clone(c.Segments)
			segs[last] = Segment{Value: alias}
			paths = append(paths, aliasPath{cmd: c, alias: alias, segs: segs})
		}
	}

	var diags []Diagnostic
	for i, a := range paths {
		for _, other := range cmds {
			if other == a.cmd || len(other.Segments) < len(a.segs) || isDescendant(other, a.cmd) {
				continue
			}
			if overlaps(a.segs, other.Segments[:len(a.segs)]) {
				diags = append(diags, NewDiagnosticWithPath(SeverityError, CodeAliasCollision,
					fmt.Sprintf("alias %q of command %q collides with command %q", a.alias, a.cmd.Path, other.Path),
					a.cmd.SourceFile))
			}
		}
		for _, b := range paths[i+1:] {
			if b.cmd == a.cmd || len(b.segs) != len(a.segs) || !overlaps(a.segs, b.segs) {
				continue
			}
			diags = append(diags, NewDiagnosticWithPath(SeverityError, CodeAliasCollision,
				fmt.Sprintf("alias %q is declared by both %q and %q", b.alias, a.cmd.Path, b.cmd.Path),
				b.cmd.SourceFile))
		}
	}
	return diags
}

// overlaps reports whether some token sequence binds both a and b, which have
// equal length. A dynamic segment on either side accepts any token.
func overlaps(a, b []Segment) bool {
	for i := range a {
		if a[i].Dynamic || b[i].Dynamic {
			continue
		}
		if a[i].Value != b[i].Value {
			return false
		}
	}
	return true
}

// isDescendant reports whether c lies below ancestor in the tree.
func isDescendant(c, ancestor *CommandNode) bool {
	n := len(ancestor.Segments)
	return len(c.Segments) > n && slices.Equal(c.Segments[:n], ancestor.Segments)
}
