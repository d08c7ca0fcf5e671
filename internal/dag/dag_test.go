// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

type kind string

func TestGraph_Order(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(g *Graph[kind])
		want  []kind
	}{
		{
			name:  "empty",
			build: func(*Graph[kind]) {},
			want:  []kind{},
		},
		{
			name: "independent nodes keep insertion order",
			build: func(g *Graph[kind]) {
				g.Add("help")
				g.Add("env")
				g.Add("version")
			},
			want: []kind{"help", "env", "version"},
		},
		{
			name: "dependency first",
			build: func(g *Graph[kind]) {
				g.Add("error", "command")
				g.Add("command")
			},
			want: []kind{"command", "error"},
		},
		{
			name: "diamond",
			build: func(g *Graph[kind]) {
				g.Add("command", "params", "env")
				g.Add("params", "env")
				g.Add("error", "command")
			},
			want: []kind{"env", "params", "command", "error"},
		},
		{
			name: "duplicate edges",
			build: func(g *Graph[kind]) {
				g.Add("error", "command", "command")
			},
			want: []kind{"command", "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New[kind]()
			tt.build(g)
			got, err := g.Order()
			if err != nil {
				t.Fatalf("Order() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Order() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGraph_OrderCycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(g *Graph[kind])
		want  []kind
	}{
		{
			name:  "self loop",
			build: func(g *Graph[kind]) { g.Add("env", "env") },
			want:  []kind{"env", "env"},
		},
		{
			name: "mutual",
			build: func(g *Graph[kind]) {
				g.Add("command", "error")
				g.Add("error", "command")
			},
			want: []kind{"command", "error", "command"},
		},
		{
			name: "cycle behind a healthy prefix",
			build: func(g *Graph[kind]) {
				g.Add("help")
				g.Add("params", "middleware")
				g.Add("middleware", "version")
				g.Add("version", "params")
			},
			want: []kind{"params", "middleware", "version", "params"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New[kind]()
			tt.build(g)
			_, err := g.Order()
			var cycle *CycleError[kind]
			if !errors.As(err, &cycle) {
				t.Fatalf("Order() error = %v, want *CycleError", err)
			}
			if !slices.Equal(cycle.Cycle, tt.want) {
				t.Errorf("Cycle = %v, want %v", cycle.Cycle, tt.want)
			}
		})
	}
}

func TestCycleError_Error(t *testing.T) {
	t.Parallel()

	err := &CycleError[kind]{Cycle: []kind{"a", "b", "a"}}
	if got, want := err.Error(), "dependency cycle detected: a -> b -> a"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestGraph_Has(t *testing.T) {
	t.Parallel()

	g := New[kind]()
	g.Add("error", "command")
	for _, k := range []kind{"error", "command"} {
		if !g.Has(k) {
			t.Errorf("Has(%q) = false", k)
		}
	}
	if g.Has("env") {
		t.Error(`Has("env") = true`)
	}
}
