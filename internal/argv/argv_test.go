// SPDX-License-Identifier: MPL-2.0

package argv

import (
	"maps"
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		args        []string
		opts        []Option
		positionals []string
		options     map[string]string
	}{
		{name: "empty", args: nil, options: map[string]string{}},
		{
			name:        "positionals only",
			args:        []string{"user", "create", "bob"},
			positionals: []string{"user", "create", "bob"},
			options:     map[string]string{},
		},
		{
			name:        "long option with separate value",
			args:        []string{"deploy", "--env", "prod", "now"},
			positionals: []string{"deploy", "now"},
			options:     map[string]string{"env": "prod"},
		},
		{
			name:        "long option with equals",
			args:        []string{"--env=prod", "deploy"},
			positionals: []string{"deploy"},
			options:     map[string]string{"env": "prod"},
		},
		{
			name:    "empty value after equals",
			args:    []string{"--env="},
			options: map[string]string{"env": ""},
		},
		{
			name:        "known boolean never consumes",
			args:        []string{"--help", "user"},
			positionals: []string{"user"},
			options:     map[string]string{"help": "true"},
		},
		{
			name:        "custom boolean",
			args:        []string{"--force", "target"},
			opts:        []Option{WithBooleans("force")},
			positionals: []string{"target"},
			options:     map[string]string{"force": "true"},
		},
		{
			name:    "option followed by option is boolean",
			args:    []string{"--dry-run", "--env", "dev"},
			options: map[string]string{"dry-run": "true", "env": "dev"},
		},
		{
			name:    "trailing option is boolean",
			args:    []string{"--verbose"},
			options: map[string]string{"verbose": "true"},
		},
		{
			name:        "short flags are boolean",
			args:        []string{"-v", "x"},
			positionals: []string{"x"},
			options:     map[string]string{"v": "true"},
		},
		{
			name:    "grouped short flags",
			args:    []string{"-abc"},
			options: map[string]string{"a": "true", "b": "true", "c": "true"},
		},
		{
			name:    "short with value",
			args:    []string{"-n=3"},
			options: map[string]string{"n": "3"},
		},
		{
			name:        "negative numbers are positional",
			args:        []string{"move", "-5", "--by", "-2.5"},
			positionals: []string{"move", "-5"},
			options:     map[string]string{"by": "-2.5"},
		},
		{
			name:        "double dash ends options",
			args:        []string{"run", "--", "--not-an-option", "-x"},
			positionals: []string{"run", "--not-an-option", "-x"},
			options:     map[string]string{},
		},
		{
			name:        "single dash is positional",
			args:        []string{"cat", "-"},
			positionals: []string{"cat", "-"},
			options:     map[string]string{},
		},
		{
			name:    "last repeated option wins",
			args:    []string{"--env=a", "--env=b"},
			options: map[string]string{"env": "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.args, tt.opts...)
			if !slices.Equal(got.Positionals, tt.positionals) {
				t.Errorf("Positionals = %q, want %q", got.Positionals, tt.positionals)
			}
			if !maps.Equal(got.Options, tt.options) {
				t.Errorf("Options = %v, want %v", got.Options, tt.options)
			}
		})
	}
}

func TestArgs_Has(t *testing.T) {
	t.Parallel()

	a := Parse([]string{"-h"})
	if !a.Has("help", "h") || a.Has("version", "v") {
		t.Errorf("Has misreports options %v", a.Options)
	}
}
