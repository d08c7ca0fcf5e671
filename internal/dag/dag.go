// SPDX-License-Identifier: MPL-2.0

// Package dag checks dependency graphs for cycles and orders their nodes.
// The handler registry uses it to prove that handler dependencies form a DAG
// before their execution orders are compared.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError reports a dependency cycle. Cycle starts and ends with the
	// same node, e.g. [a b a].
	CycleError[K ~string] struct {
		Cycle []K
	}

	// Graph is a dependency graph over nodes of type K. Nodes keep their
	// insertion order so every result is deterministic.
	Graph[K ~string] struct {
		nodes []K
		deps  map[K][]K
	}
)

func (e *CycleError[K]) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, k := range e.Cycle {
		parts[i] = string(k)
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, " -> "))
}

// New returns an empty graph.
func New[K ~string]() *Graph[K] {
	return &Graph[K]{deps: map[K][]K{}}
}

// Add registers node and the nodes it depends on. Adding a node twice
// appends to its dependencies.
func (g *Graph[K]) Add(node K, deps ...K) {
	g.addNode(node)
	for _, d := range deps {
		g.addNode(d)
		g.deps[node] = append(g.deps[node], d)
	}
}

// Has reports whether node was added, directly or as a dependency.
func (g *Graph[K]) Has(node K) bool {
	_, ok := g.deps[node]
	return ok
}

// Order returns the nodes with every dependency ahead of its dependents.
// Independent nodes keep insertion order. A cycle yields a *CycleError naming
// the first cycle found.
func (g *Graph[K]) Order() ([]K, error) {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[K]int, len(g.nodes))
	out := make([]K, 0, len(g.nodes))
	var stack []K

	var visit func(K) error
	visit = func(n K) error {
		switch state[n] {
		case done:
			return nil
		case active:
			start := 0
			for i, s := range stack {
				if s == n {
					start = i
					break
				}
			}
			cycle := append(append([]K{}, stack[start:]...), n)
			return &CycleError[K]{Cycle: cycle}
		}
		state[n] = active
		stack = append(stack, n)
		for _, d := range g.deps[n] {
			if err := visit(d); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		out = append(out, n)
		return nil
	}

	for _, n := range g.nodes {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (g *Graph[K]) addNode(n K) {
	if _, ok := g.deps[n]; ok {
		return
	}
	g.deps[n] = nil
	g.nodes = append(g.nodes, n)
}
