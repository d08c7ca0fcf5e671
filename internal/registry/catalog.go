// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/cmdtree/cmdtree/internal/dag"
)

var (
	// ErrInvalidCatalog is the sentinel error wrapped by InvalidCatalogError.
	ErrInvalidCatalog = errors.New("invalid handler catalog")

	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

type (
	// InvalidCatalogError lists every invariant a candidate catalog violates.
	// It wraps ErrInvalidCatalog for errors.Is() compatibility.
	InvalidCatalogError struct {
		Problems []string
	}

	// Catalog is an immutable, order-sorted set of handler definitions.
	Catalog struct {
		defs   []Definition
		byKind map[Kind]int
	}

	// DependencyError reports a present handler whose dependency is absent.
	DependencyError struct {
		Kind    Kind
		Missing Kind
	}

	// DependencyReport is the result of ValidateDependencies.
	DependencyReport struct {
		Valid  bool
		Errors []DependencyError
	}
)

// Error implements the error interface.
func (e *InvalidCatalogError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidCatalog, strings.Join(e.Problems, "; "))
}

// Unwrap returns ErrInvalidCatalog for errors.Is() compatibility.
func (e *InvalidCatalogError) Unwrap() error { return ErrInvalidCatalog }

// Error implements the error interface.
func (e DependencyError) Error() string {
	return fmt.Sprintf("handler %q requires %q, which is not present", e.Kind, e.Missing)
}

// Default returns the built-in catalog. A default table that breaks its own
// invariants is a programming error, so it panics instead of returning an error.
func Default() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := NewCatalog(defaultDefinitions()...)
		if err != nil {
			panic(fmt.Sprintf("registry: built-in catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// NewCatalog builds a catalog after checking every invariant:
//   - kinds are unique and non-empty; scopes are valid
//   - (scope, file name) pairs are unique
//   - exactly one definition is required
//   - every dependency exists, the dependency graph is acyclic, and each
//     definition's Order is strictly greater than the Order of its dependencies
func NewCatalog(defs ...Definition) (*Catalog, error) {
	var problems []string

	byKind := make(map[Kind]int, len(defs))
	files := make(map[string]Kind, len(defs))
	required := 0
	for i, d := range defs {
		if d.Kind == "" {
			problems = append(problems, fmt.Sprintf("definition %d has no kind", i))
			continue
		}
		if _, dup := byKind[d.Kind]; dup {
			problems = append(problems, fmt.Sprintf("duplicate kind %q", d.Kind))
			continue
		}
		byKind[d.Kind] = i
		if !d.Scope.IsValid() {
			problems = append(problems, fmt.Sprintf("kind %q has invalid scope %q", d.Kind, d.Scope))
		}
		if d.FileName == "" {
			problems = append(problems, fmt.Sprintf("kind %q has no file name", d.Kind))
		} else {
			key := string(d.Scope) + "/" + d.FileName
			if other, dup := files[key]; dup {
				problems = append(problems, fmt.Sprintf("kinds %q and %q share %s file name %q", other, d.Kind, d.Scope, d.FileName))
			}
			files[key] = d.Kind
		}
		if d.Required {
			required++
		}
	}
	if required != 1 {
		problems = append(problems, fmt.Sprintf("expected exactly one required kind, found %d", required))
	}

	g := dag.New[Kind]()
	for _, d := range defs {
		g.Add(d.Kind)
	}
	for _, d := range defs {
		for _, dep := range d.Dependencies {
			idx, ok := byKind[dep]
			if !ok {
				problems = append(problems, fmt.Sprintf("kind %q depends on unknown kind %q", d.Kind, dep))
				continue
			}
			g.Add(d.Kind, dep)
			if defs[idx].Order >= d.Order {
				problems = append(problems, fmt.Sprintf(
					"kind %q (order %d) must run after its dependency %q (order %d)",
					d.Kind, d.Order, dep, defs[idx].Order))
			}
		}
	}
	if _, err := g.Order(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return nil, &InvalidCatalogError{Problems: problems}
	}

	sorted := make([]Definition, 0, len(defs))
	for _, d := range defs {
		sorted = append(sorted, d.clone())
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	c := &Catalog{defs: sorted, byKind: make(map[Kind]int, len(sorted))}
	for i, d := range sorted {
		c.byKind[d.Kind] = i
	}
	return c, nil
}

// List returns copies of the definitions in the given scope, ascending by Order.
// ScopeAll returns every definition.
func (c *Catalog) List(scope Scope) []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		if scope == ScopeAll || d.Scope == scope {
			out = append(out, d.clone())
		}
	}
	return out
}

// Get returns the definition for kind.
func (c *Catalog) Get(kind Kind) (Definition, bool) {
	idx, ok := c.byKind[kind]
	if !ok {
		return Definition{}, false
	}
	return c.defs[idx].clone(), true
}

// ByFileName returns the definition whose file name matches in the given scope.
func (c *Catalog) ByFileName(scope Scope, fileName string) (Definition, bool) {
	for _, d := range c.defs {
		if d.Scope == scope && d.FileName == fileName {
			return d.clone(), true
		}
	}
	return Definition{}, false
}

// Required returns the single required definition.
func (c *Catalog) Required() Definition {
	for _, d := range c.defs {
		if d.Required {
			return d.clone()
		}
	}
	// NewCatalog guarantees exactly one required definition.
	panic("registry: catalog without a required kind")
}

// Kinds returns every kind in execution order.
func (c *Catalog) Kinds() []Kind {
	kinds := make([]Kind, 0, len(c.defs))
	for _, d := range c.defs {
		kinds = append(kinds, d.Kind)
	}
	return kinds
}

// Sort orders kinds by their execution order. Unknown kinds sort last, by name.
func (c *Catalog) Sort(kinds []Kind) []Kind {
	out := slices.Clone(kinds)
	rank := func(k Kind) (int, bool) {
		idx, ok := c.byKind[k]
		if !ok {
			return 0, false
		}
		return c.defs[idx].Order, true
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, okI := rank(out[i])
		rj, okJ := rank(out[j])
		switch {
		case okI && okJ:
			return ri < rj
		case okI != okJ:
			return okI
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// ValidateDependencies reports one error for each available handler whose
// declared dependency is not also available. Unknown kinds are ignored.
func (c *Catalog) ValidateDependencies(available []Kind) DependencyReport {
	present := make(map[Kind]bool, len(available))
	for _, k := range available {
		present[k] = true
	}

	report := DependencyReport{Valid: true}
	for _, k := range c.Sort(available) {
		def, ok := c.Get(k)
		if !ok {
			continue
		}
		for _, dep := range def.Dependencies {
			if !present[dep] {
				report.Errors = append(report.Errors, DependencyError{Kind: k, Missing: dep})
			}
		}
	}
	report.Valid = len(report.Errors) == 0
	return report
}
