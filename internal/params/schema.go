// SPDX-License-Identifier: MPL-2.0

package params

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/cmdtree/cmdtree/pkg/cueutil"
)

type (
	// Schema validates the raw data assembled from a Contract's fields and
	// returns the data the command receives.
	Schema interface {
		Validate(data map[string]any) (map[string]any, []Issue)
	}

	// CUESchema validates data against a CUE struct. CUE defaults fill absent
	// fields, and string tokens are converted when the schema asks for a
	// number, a boolean or a list.
	CUESchema struct {
		src      []byte
		filename string
	}
)

// NewCUESchema compiles src once to report syntax errors early. filename is
// used in messages.
func NewCUESchema(src []byte, filename string) (*CUESchema, error) {
	if filename == "" {
		filename = "<schema>"
	}
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if v.Err() != nil {
		return nil, cueutil.FormatError(v.Err(), filename)
	}
	if k := v.IncompleteKind(); k&cue.StructKind == 0 {
		return nil, fmt.Errorf("%s: parameter schema must be a struct, got %v", filename, k)
	}
	return &CUESchema{src: src, filename: filename}, nil
}

// Validate implements Schema.
func (s *CUESchema) Validate(data map[string]any) (map[string]any, []Issue) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(s.src, cue.Filename(s.filename))
	if schema.Err() != nil {
		return nil, toIssues(schema.Err())
	}

	unified := schema.Unify(ctx.Encode(coerceToSchema(schema, data)))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, toIssues(err)
	}

	var out map[string]any
	if err := unified.Decode(&out); err != nil {
		return nil, toIssues(err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func toIssues(err error) []Issue {
	var issues []Issue
	for _, is := range cueutil.Issues(err) {
		issues = append(issues, Issue{Path: is.Path, Message: is.Message})
	}
	return issues
}

// coerceToSchema converts string values whose schema field only admits
// numbers, booleans or lists. Values that do not convert are left alone so
// the schema reports them.
func coerceToSchema(schema cue.Value, data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
		s, ok := v.(string)
		if !ok {
			continue
		}
		field := schema.LookupPath(cue.MakePath(cue.Str(k)))
		if !field.Exists() {
			field = schema.LookupPath(cue.MakePath(cue.Str(k).Optional()))
		}
		if !field.Exists() {
			continue
		}

		kind := field.IncompleteKind()
		if kind&cue.StringKind != 0 {
			continue
		}
		switch {
		case kind&cue.NumberKind != 0 && kind&^cue.NumberKind == 0:
			if kind == cue.IntKind {
				if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
					out[k] = i
				}
				continue
			}
			if f, err := toNumber(s); err == nil {
				out[k] = f
			}
		case kind == cue.BoolKind:
			if b, err := toBool(s); err == nil {
				out[k] = b
			}
		case kind == cue.ListKind:
			if parts, err := toArray(s); err == nil {
				list := make([]any, len(parts))
				for i, p := range parts {
					list[i] = p
				}
				out[k] = list
			}
		}
	}
	return out
}
