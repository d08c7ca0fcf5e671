// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrEnvFileSyntax is wrapped by every ParseEnvFile error.
var ErrEnvFileSyntax = errors.New("invalid env file")

// LoadEnvFile merges a dotenv file into env. Relative paths resolve against
// baseDir. A trailing '?' marks the file optional: a missing optional file is
// not an error.
func LoadEnvFile(env map[string]string, path, baseDir string) error {
	path, optional := strings.CutSuffix(path, "?")
	full := filepath.FromSlash(path)
	if !filepath.IsAbs(full) {
		full = filepath.Join(baseDir, full)
	}

	content, err := os.ReadFile(full)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read env file %q: %w", path, err)
	}
	return ParseEnvFile(env, content, path)
}

// ParseEnvFile merges dotenv content into env. Each non-blank line that is not
// a '#' comment has the form [export ]KEY=value. Values may be bare (an
// unquoted " #" starts a comment), 'single-quoted' (literal) or
// "double-quoted" (\n \r \t \\ \" \$ escapes).
func ParseEnvFile(env map[string]string, content []byte, filename string) error {
	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("%w: %s:%d: missing '='", ErrEnvFileSyntax, filename, i+1)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("%w: %s:%d: empty variable name", ErrEnvFileSyntax, filename, i+1)
		}
		value, err := envValue(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s:%d: %w", ErrEnvFileSyntax, filename, i+1, err)
		}
		env[key] = value
	}
	return nil
}

func envValue(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	switch q := v[0]; q {
	case '"', '\'':
		if len(v) < 2 || v[len(v)-1] != q {
			return "", fmt.Errorf("unterminated %c quote", q)
		}
		inner := v[1 : len(v)-1]
		if q == '\'' {
			return inner, nil
		}
		return unescape(inner), nil
	}
	if before, _, found := strings.Cut(v, " #"); found {
		v = strings.TrimSpace(before)
	}
	return v, nil
}

var escapes = map[byte]byte{'n': '\n', 'r': '\r', 't': '\t', '\\': '\\', '"': '"', '$': '$'}

// unescape resolves backslash escapes; unknown escapes are kept verbatim.
func unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			if r, ok := escapes[s[i+1]]; ok {
				b.WriteByte(r)
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
