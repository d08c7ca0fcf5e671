// SPDX-License-Identifier: MPL-2.0

package match

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/metadata"
)

// tree builds a Structure from command paths in the order the scanner would
// produce them. A path may carry aliases after a colon: "user/create:add,new".
func tree(t *testing.T, specs ...string) *discovery.Structure {
	t.Helper()
	st := &discovery.Structure{}
	for _, spec := range specs {
		path, aliases, _ := strings.Cut(spec, ":")
		var segs []discovery.Segment
		for _, part := range strings.Split(path, "/") {
			s, ok := discovery.ParseSegment(part)
			if !ok {
				t.Fatalf("bad segment %q", part)
			}
			segs = append(segs, s)
		}
		n := &discovery.CommandNode{Path: path, Segments: segs}
		if aliases != "" {
			n.Metadata = &metadata.Metadata{Aliases: strings.Split(aliases, ",")}
		}
		st.Commands = append(st.Commands, n)
	}
	return st
}

func TestMatch(t *testing.T) {
	t.Parallel()

	st := tree(t,
		"deploy",
		"user",
		"user/create:add,new",
		"user/list:ls",
		"user/[id]",
		"user/[id]/show:view",
		"[org]/settings",
	)

	tests := []struct {
		name      string
		tokens    []string
		want      string
		params    map[string]string
		rest      []string
		viaAlias  string
		wantError bool
	}{
		{name: "single literal", tokens: []string{"deploy"}, want: "deploy", rest: []string{}},
		{name: "longest match wins", tokens: []string{"user", "create", "x"}, want: "user/create", rest: []string{"x"}},
		{name: "shorter when only prefix matches", tokens: []string{"user"}, want: "user", rest: []string{}},
		{name: "static beats dynamic on tie", tokens: []string{"user", "list"}, want: "user/list", rest: []string{}},
		{
			name: "dynamic binds", tokens: []string{"user", "42"}, want: "user/[id]",
			params: map[string]string{"id": "42"}, rest: []string{},
		},
		{
			name: "dynamic in the middle", tokens: []string{"user", "42", "show", "--json"}, want: "user/[id]/show",
			params: map[string]string{"id": "42"}, rest: []string{"--json"},
		},
		{
			name: "leading dynamic", tokens: []string{"acme", "settings"}, want: "[org]/settings",
			params: map[string]string{"org": "acme"}, rest: []string{},
		},
		{
			name: "dynamic sibling shadows alias of equal length", tokens: []string{"user", "add", "bob"}, want: "user/[id]",
			params: map[string]string{"id": "add"}, rest: []string{"bob"},
		},
		{
			name: "alias after dynamic segment", tokens: []string{"user", "7", "view"}, want: "user/[id]/show",
			params: map[string]string{"id": "7"}, rest: []string{}, viaAlias: "view",
		},
		{name: "alias never rewrites earlier segments", tokens: []string{"add"}, wantError: true},
		{name: "no tokens", tokens: nil, wantError: true},
		{name: "unknown", tokens: []string{"frobnicate"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := Match(tt.tokens, st)
			if tt.wantError {
				if !errors.Is(err, ErrUnknownCommand) {
					t.Fatalf("expected ErrUnknownCommand, got %v (%+v)", err, res)
				}
				return
			}
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if res.Command.Path != tt.want {
				t.Errorf("command = %s, want %s", res.Command.Path, tt.want)
			}
			if res.Consumed != len(res.Command.Segments) {
				t.Errorf("Consumed = %d", res.Consumed)
			}
			if !slices.Equal(res.Rest, tt.rest) {
				t.Errorf("Rest = %v, want %v", res.Rest, tt.rest)
			}
			wantParams := tt.params
			if wantParams == nil {
				wantParams = map[string]string{}
			}
			if !maps.Equal(res.Params, wantParams) {
				t.Errorf("Params = %v, want %v", res.Params, wantParams)
			}
			if res.ViaAlias != tt.viaAlias {
				t.Errorf("ViaAlias = %q, want %q", res.ViaAlias, tt.viaAlias)
			}
		})
	}
}

func TestMatch_AliasEquivalence(t *testing.T) {
	t.Parallel()

	// The shorter "user" command matches directly but is less specific.
	st := tree(t, "user", "user/create:add")

	direct, err := Match([]string{"user", "create", "a", "b"}, st)
	if err != nil {
		t.Fatal(err)
	}
	aliased, err := Match([]string{"user", "add", "a", "b"}, st)
	if err != nil {
		t.Fatal(err)
	}
	if aliased.ViaAlias != "add" {
		t.Errorf("ViaAlias = %q", aliased.ViaAlias)
	}
	if direct.Command != aliased.Command || direct.Consumed != aliased.Consumed ||
		!slices.Equal(direct.Rest, aliased.Rest) || !maps.Equal(direct.Params, aliased.Params) {
		t.Errorf("alias resolved differently:\n direct  %+v\n aliased %+v", direct, aliased)
	}
}

func TestMatch_LiteralWinsOverCollidingAlias(t *testing.T) {
	t.Parallel()

	st := tree(t, "user/add", "user/create:add")
	res, err := Match([]string{"user", "add"}, st)
	if err != nil {
		t.Fatal(err)
	}
	if res.Command.Path != "user/add" || res.ViaAlias != "" {
		t.Errorf("got %s via %q, want the literal command", res.Command.Path, res.ViaAlias)
	}
}

func TestMatch_TieGoesToFirstDiscovered(t *testing.T) {
	t.Parallel()

	// Two dynamic routes of equal length: structure order decides.
	st := tree(t, "[a]", "[b]")
	res, err := Match([]string{"x"}, st)
	if err != nil {
		t.Fatal(err)
	}
	if res.Command.Path != "[a]" {
		t.Errorf("got %s, want [a]", res.Command.Path)
	}
}

func TestMatch_NotFoundCarriesPathAndSuggestions(t *testing.T) {
	t.Parallel()

	st := tree(t, "deploy", "user/create", "user/delete")
	_, err := Match([]string{"deplyo", "now"}, st)

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if nf.Path != "deplyo now" {
		t.Errorf("Path = %q", nf.Path)
	}
	if err.Error() != `unknown command "deplyo now"` {
		t.Errorf("Error() = %q", err.Error())
	}
}
