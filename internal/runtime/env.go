// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Variables every script sees. Per-field variables use the prefixes below.
const (
	EnvCommand      = "CMDTREE_COMMAND"
	EnvInvocationID = "CMDTREE_INVOCATION_ID"
	EnvVersion      = "CMDTREE_VERSION"
	EnvError        = "CMDTREE_ERROR"

	EnvParamPrefix = "CMDTREE_PARAM_"
	EnvOptPrefix   = "CMDTREE_OPT_"
	EnvVarPrefix   = "CMDTREE_VAR_"
)

// invocationVars are stripped from inherited environments so a script that
// starts a nested invocation does not see its parent's values.
var invocationVars = []string{EnvCommand, EnvInvocationID, EnvError}

var invocationPrefixes = []string{EnvParamPrefix, EnvOptPrefix, EnvVarPrefix}

// EnvBuilder assembles a script environment. Later writes win.
type EnvBuilder struct {
	env map[string]string
}

// NewEnvBuilder starts from base with the invocation-specific CMDTREE_*
// variables removed.
func NewEnvBuilder(base map[string]string) *EnvBuilder {
	b := &EnvBuilder{env: make(map[string]string, len(base)+8)}
	for k, v := range base {
		if !isInvocationVar(k) {
			b.env[k] = v
		}
	}
	return b
}

// Set sets one variable.
func (b *EnvBuilder) Set(key, value string) *EnvBuilder {
	b.env[key] = value
	return b
}

// Merge copies every entry of vars.
func (b *EnvBuilder) Merge(vars map[string]string) *EnvBuilder {
	maps.Copy(b.env, vars)
	return b
}

// Prefixed sets prefix+EnvName(k) for each entry of vars.
func (b *EnvBuilder) Prefixed(prefix string, vars map[string]string) *EnvBuilder {
	for k, v := range vars {
		b.env[prefix+EnvName(k)] = v
	}
	return b
}

// Values is Prefixed for typed values, formatted with FormatValue.
func (b *EnvBuilder) Values(prefix string, vars map[string]any) *EnvBuilder {
	for k, v := range vars {
		b.env[prefix+EnvName(k)] = FormatValue(v)
	}
	return b
}

// Map returns a copy of the environment.
func (b *EnvBuilder) Map() map[string]string {
	return maps.Clone(b.env)
}

// Build returns the environment as sorted KEY=value pairs.
func (b *EnvBuilder) Build() []string {
	return EnvToSlice(b.env)
}

// EnvToSlice converts env to KEY=value pairs sorted by key.
func EnvToSlice(env map[string]string) []string {
	keys := slices.Sorted(maps.Keys(env))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// EnvName turns a field or option name into a variable suffix: upper case,
// with every character outside [A-Z0-9] replaced by '_'.
func EnvName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// FormatValue renders a validated parameter for the environment. Strings are
// kept as is, integral numbers have no decimal point, and lists and objects
// are JSON.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func isInvocationVar(name string) bool {
	if slices.Contains(invocationVars, name) {
		return true
	}
	for _, p := range invocationPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
