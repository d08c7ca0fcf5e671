// SPDX-License-Identifier: MPL-2.0

// Package argv splits invocation tokens into positional arguments and named
// options.
//
// The accepted forms are "--key value", "--key=value", "-k" (boolean),
// "-k=value" and grouped short booleans ("-abc"). A bare "--" ends option
// parsing. Option keys are stored without dashes; a repeated option keeps its
// last value. Tokens that look like negative numbers stay positional.
package argv

import (
	"slices"
	"strconv"
	"strings"
)

// DefaultBooleans are the option names that never consume the next token.
var DefaultBooleans = []string{"help", "h", "version", "v"}

type (
	// Args is a tokenized invocation.
	Args struct {
		Positionals []string
		Options     map[string]string
	}

	// Option configures Parse.
	Option func(*parser)

	parser struct {
		booleans []string
	}
)

// WithBooleans adds long option names that never take a value.
func WithBooleans(names ...string) Option {
	return func(p *parser) {
		p.booleans = append(p.booleans, names...)
	}
}

// Parse tokenizes args.
func Parse(args []string, opts ...Option) Args {
	p := &parser{booleans: slices.Clone(DefaultBooleans)}
	for _, opt := range opts {
		opt(p)
	}

	out := Args{Options: map[string]string{}}
	for i := 0; i < len(args); i++ {
		tok := args[i]
		switch {
		case tok == "--":
			out.Positionals = append(out.Positionals, args[i+1:]...)
			return out
		case strings.HasPrefix(tok, "--") && len(tok) > 2:
			key, val, hasVal := strings.Cut(tok[2:], "=")
			if !hasVal {
				val = "true"
				if !p.isBoolean(key) && i+1 < len(args) && !isOptionLike(args[i+1]) {
					val = args[i+1]
					i++
				}
			}
			out.Options[key] = val
		case isOptionLike(tok):
			key, val, hasVal := strings.Cut(tok[1:], "=")
			if hasVal {
				out.Options[key] = val
				continue
			}
			for _, r := range key {
				out.Options[string(r)] = "true"
			}
		default:
			out.Positionals = append(out.Positionals, tok)
		}
	}
	return out
}

// Has reports whether any of names was given.
func (a Args) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := a.Options[n]; ok {
			return true
		}
	}
	return false
}

func (p *parser) isBoolean(name string) bool {
	return slices.Contains(p.booleans, name)
}

// isOptionLike reports whether tok starts an option: a dash followed by
// something that is not a number.
func isOptionLike(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return false
	}
	return true
}
