// SPDX-License-Identifier: MPL-2.0

package match

import (
	"cmp"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/cmdtree/cmdtree/internal/discovery"
)

const (
	// MaxSuggestions is how many suggestions an unknown-command error carries.
	MaxSuggestions = 3

	// maxTypoDistance bounds edit distance for candidates that are not a fuzzy
	// superset of the input (e.g. transposed letters).
	maxTypoDistance = 3
)

type suggestion struct {
	name     string
	typo     bool
	distance int
}

// Suggest returns up to limit command paths (space separated, as typed)
// closest to input. Candidates that contain the input's letters in order come
// first, by edit distance; near-miss typos within maxTypoDistance edits follow.
func Suggest(input string, st *discovery.Structure, limit int) []string {
	input = strings.TrimSpace(input)
	if input == "" || limit <= 0 {
		return nil
	}

	candidates := make([]string, 0, len(st.Commands))
	for _, c := range st.Commands {
		candidates = append(candidates, displayPath(c.Segments))
		for _, alias := range c.Aliases() {
			segs := slices.Clone(c.Segments)
			segs[len(segs)-1] = discovery.Segment{Value: alias}
			candidates = append(candidates, displayPath(segs))
		}
	}

	seen := map[string]bool{}
	var found []suggestion
	for _, r := range fuzzy.RankFindFold(input, candidates) {
		if !seen[r.Target] {
			seen[r.Target] = true
			found = append(found, suggestion{name: r.Target, distance: r.Distance})
		}
	}
	lower := strings.ToLower(input)
	for _, cand := range candidates {
		if seen[cand] {
			continue
		}
		if d := fuzzy.LevenshteinDistance(lower, strings.ToLower(cand)); d <= maxTypoDistance {
			seen[cand] = true
			found = append(found, suggestion{name: cand, typo: true, distance: d})
		}
	}

	slices.SortFunc(found, func(a, b suggestion) int {
		return cmp.Or(
			compareBool(a.typo, b.typo),
			cmp.Compare(a.distance, b.distance),
			cmp.Compare(a.name, b.name),
		)
	})
	if len(found) > limit {
		found = found[:limit]
	}

	out := make([]string, len(found))
	for i, s := range found {
		out[i] = s.name
	}
	return out
}

func displayPath(segs []discovery.Segment) string {
	return strings.ReplaceAll(discovery.JoinSegments(segs), "/", " ")
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}
