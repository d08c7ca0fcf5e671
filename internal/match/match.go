// SPDX-License-Identifier: MPL-2.0

package match

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cmdtree/cmdtree/internal/discovery"
)

// ErrUnknownCommand is the sentinel error wrapped by NotFoundError.
var ErrUnknownCommand = errors.New("unknown command")

type (
	// Result is a resolved invocation.
	Result struct {
		// Command is the matched command.
		Command *discovery.CommandNode
		// Params holds the tokens bound to dynamic segments, by segment name.
		Params map[string]string
		// Consumed is the number of tokens the command path used.
		Consumed int
		// Rest is the tokens after the command path.
		Rest []string
		// ViaAlias is the alias that matched, or empty for a direct match.
		ViaAlias string
	}

	// NotFoundError reports tokens that match no command.
	NotFoundError struct {
		// Path is the attempted command path (the tokens joined by spaces).
		Path string
		// Suggestions are the closest command paths, best first.
		Suggestions []string
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q", ErrUnknownCommand, e.Path)
}

// Unwrap returns ErrUnknownCommand for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrUnknownCommand }

// Match resolves tokens against the commands of st. On failure it returns a
// *NotFoundError carrying up to MaxSuggestions suggestions.
func Match(tokens []string, st *discovery.Structure) (*Result, error) {
	direct := matchDirect(tokens, st.Commands)
	// An alias only wins when it is more specific than every direct match, so
	// literal and dynamic routes keep priority on ties.
	if alias := matchAlias(tokens, st.Commands); alias != nil && (direct == nil || alias.Consumed > direct.Consumed) {
		return alias, nil
	}
	if direct != nil {
		return direct, nil
	}

	path := strings.Join(tokens, " ")
	return nil, &NotFoundError{Path: path, Suggestions: Suggest(path, st, MaxSuggestions)}
}

func matchDirect(tokens []string, cmds []*discovery.CommandNode) *Result {
	var best *Result
	for _, c := range cmds {
		if best != nil && len(c.Segments) <= best.Consumed {
			continue
		}
		if params, ok := bind(c.Segments, tokens); ok {
			best = newResult(c, params, tokens, "")
		}
	}
	return best
}

func matchAlias(tokens []string, cmds []*discovery.CommandNode) *Result {
	var best *Result
	for _, c := range cmds {
		if best != nil && len(c.Segments) <= best.Consumed {
			continue
		}
		last := len(c.Segments) - 1
		for _, alias := range c.Aliases() {
			segs := slices.Clone(c.Segments)
			segs[last] = discovery.Segment{Value: alias}
			if params, ok := bind(segs, tokens); ok {
				best = newResult(c, params, tokens, alias)
				break
			}
		}
	}
	return best
}

// bind matches segs against the leading tokens and returns the dynamic
// bindings. It reports false when there are fewer tokens than segments or a
// literal segment differs from its token.
func bind(segs []discovery.Segment, tokens []string) (map[string]string, bool) {
	if len(segs) == 0 || len(segs) > len(tokens) {
		return nil, false
	}
	params := map[string]string{}
	for i, s := range segs {
		if s.Dynamic {
			params[s.Value] = tokens[i]
			continue
		}
		if s.Value != tokens[i] {
			return nil, false
		}
	}
	return params, true
}

func newResult(c *discovery.CommandNode, params map[string]string, tokens []string, alias string) *Result {
	n := len(c.Segments)
	return &Result{
		Command:  c,
		Params:   params,
		Consumed: n,
		Rest:     slices.Clone(tokens[n:]),
		ViaAlias: alias,
	}
}
