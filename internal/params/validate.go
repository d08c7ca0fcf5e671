// SPDX-License-Identifier: MPL-2.0

package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

type (
	// Issue is one validation problem.
	Issue struct {
		// Path is the field (or schema path) the issue concerns.
		Path    string `json:"path"`
		Message string `json:"message"`
	}

	// ValidationError is the structured failure of Validate.
	ValidationError struct {
		Message string  `json:"message"`
		Issues  []Issue `json:"issues"`
	}

	// Result is the outcome of Validate. Data is set on success, Error on failure.
	Result struct {
		Success bool
		Data    map[string]any
		Error   *ValidationError
	}
)

// String renders "<path>: <message>".
func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Error implements the error interface. Issues are listed one per line.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, is := range e.Issues {
		b.WriteString("\n  - ")
		b.WriteString(is.String())
	}
	return b.String()
}

// Unwrap returns ErrValidation for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate extracts every field of c from args and options and validates the
// result. options are keyed by option name without dashes.
func Validate(args []string, options map[string]string, c Contract) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failure([]Issue{{Message: fmt.Sprintf("internal validation error: %v", r)}})
		}
	}()

	raw := map[string]any{}
	var issues []Issue
	for _, f := range c.Fields {
		v, ok := extract(f, args, options)
		if !ok {
			if f.Required {
				issues = append(issues, Issue{Path: f.Name, Message: "required"})
			}
			continue
		}
		if c.Schema != nil {
			raw[f.Name] = v
			continue
		}
		coerced, err := coerce(v, f.Type)
		if err != nil {
			issues = append(issues, Issue{Path: f.Name, Message: err.Error()})
			continue
		}
		raw[f.Name] = coerced
	}
	if len(issues) > 0 {
		return failure(issues)
	}

	if c.Schema == nil {
		return Result{Success: true, Data: raw}
	}
	data, schemaIssues := c.Schema.Validate(raw)
	if len(schemaIssues) > 0 {
		return failure(schemaIssues)
	}
	return Result{Success: true, Data: data}
}

func failure(issues []Issue) Result {
	noun := "issue"
	if len(issues) != 1 {
		noun = "issues"
	}
	return Result{Error: &ValidationError{
		Message: fmt.Sprintf("%s: %d %s", ErrValidation, len(issues), noun),
		Issues:  issues,
	}}
}

// extract applies the precedence named option > positional > default. It
// reports false when no source supplies a value.
func extract(f Field, args []string, options map[string]string) (any, bool) {
	if f.Option != "" {
		if v, ok := options[f.Option]; ok {
			return v, true
		}
	}
	if f.ArgIndex != nil && *f.ArgIndex >= 0 && *f.ArgIndex < len(args) {
		return args[*f.ArgIndex], true
	}
	if f.Default != nil {
		return f.Default, true
	}
	return nil, false
}

// coerce converts a raw token or declared default to typ.
func coerce(v any, typ Type) (any, error) {
	switch typ {
	case "", TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case TypeNumber:
		return toNumber(v)
	case TypeBoolean:
		return toBool(v)
	case TypeArray:
		return toArray(v)
	case TypeObject:
		return toObject(v)
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
	}
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) {
			return 0, fmt.Errorf("expected number, got NaN")
		}
		return n, nil
	case float32:
		return toNumber(float64(n))
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return toNumber(n.String())
	case string:
		f, ok := parseNumber(n)
		if !ok {
			return 0, fmt.Errorf("expected number, got %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

// decimalLiteral is the grammar accepted for decimal numbers after trimming:
// no digit separators, no "inf" or "nan" spellings, no hex floats.
var decimalLiteral = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// parseNumber converts a token the way JavaScript's Number() does. Blank
// input is 0, "0x", "0o" and "0b" prefixes select unsigned integer literals,
// and "Infinity" may carry a sign. Anything else that is not a decimal
// literal is rejected, as are results that would be NaN.
func parseNumber(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	switch t {
	case "":
		return 0, true
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}

	if len(t) > 2 && t[0] == '0' {
		base := 0
		switch t[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			if t[2] == '+' || t[2] == '-' {
				return 0, false
			}
			i, ok := new(big.Int).SetString(t[2:], base)
			if !ok {
				return 0, false
			}
			f, _ := new(big.Float).SetInt(i).Float64()
			return f, true
		}
	}

	if !decimalLiteral.MatchString(t) {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("expected boolean (true/false, 1/0, yes/no), got %q", b)
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func toArray(v any) ([]string, error) {
	switch a := v.(type) {
	case []string:
		return a, nil
	case []any:
		out := make([]string, len(a))
		for i, e := range a {
			out[i] = fmt.Sprint(e)
		}
		return out, nil
	case string:
		if strings.TrimSpace(a) == "" {
			return []string{}, nil
		}
		parts := strings.Split(a, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return nil, fmt.Errorf("expected array, got %T", v)
	}
}

func toObject(v any) (map[string]any, error) {
	switch o := v.(type) {
	case map[string]any:
		return o, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(o), &out); err != nil {
			return nil, fmt.Errorf("expected JSON object: %v", err)
		}
		if out == nil {
			return nil, fmt.Errorf("expected JSON object, got null")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected object, got %T", v)
	}
}
