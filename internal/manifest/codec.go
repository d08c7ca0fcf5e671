// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for unsupported format names and extensions.
var ErrUnknownFormat = errors.New("unknown manifest format")

// Format is a manifest encoding.
type Format string

// Formats returns the supported formats.
func Formats() []Format { return []Format{FormatYAML, FormatJSON, FormatTOML} }

// ParseFormat accepts "yaml", "yml", "json" and "toml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath picks the format from path's extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// IsManifestPath reports whether path has a manifest extension.
func IsManifestPath(path string) bool {
	_, err := FormatFromPath(path)
	return err == nil
}

// Encode writes m to w.
func Encode(w io.Writer, m *Manifest, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode yaml manifest: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode json manifest: %w", err)
		}
		return nil
	case FormatTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode toml manifest: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Decode reads a manifest from r. Unknown fields are errors.
func Decode(r io.Reader, f Format) (*Manifest, error) {
	var m Manifest
	var err error
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(&m)
	case FormatTOML:
		err = toml.NewDecoder(r).DisallowUnknownFields().Decode(&m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s manifest: %w", f, err)
	}
	return &m, nil
}

// Read decodes the manifest at path, choosing the format by extension. A
// relative root is resolved against the manifest's directory.
func Read(path string) (*Manifest, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(bytes.NewReader(data), f)
	if err != nil {
		return nil, err
	}

	if !filepath.IsAbs(m.Root) {
		dir, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		m.Root = filepath.Join(dir, filepath.FromSlash(m.Root))
	}
	return m, nil
}

// Write encodes m to path in the format its extension names. The root is
// stored relative to the manifest's directory when it lies beneath it.
func Write(path string, m *Manifest) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return err
	}

	out := *m
	out.Root = relTo(dir, m.Root)

	var buf bytes.Buffer
	if err := Encode(&buf, &out, f); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
