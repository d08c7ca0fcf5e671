// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"context"
	"slices"
)

type (
	// Metadata is the descriptive information a handler file declares about its command.
	Metadata struct {
		Name           string   `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
		Description    string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
		Examples       []string `json:"examples,omitempty" yaml:"examples,omitempty" toml:"examples,omitempty"`
		Aliases        []string `json:"aliases,omitempty" yaml:"aliases,omitempty" toml:"aliases,omitempty"`
		AdditionalHelp string   `json:"additionalHelp,omitempty" yaml:"additional_help,omitempty" toml:"additional_help,omitempty"`
	}

	// VersionInfo is what a version file declares.
	VersionInfo struct {
		Version  string    `json:"version"`
		Metadata *Metadata `json:"meta,omitempty"`
	}

	// Extractor reads metadata from handler files. Implementations return
	// (nil, nil) for files they do not understand.
	Extractor interface {
		Extract(ctx context.Context, path string) (*Metadata, error)
		ExtractVersion(ctx context.Context, path string) (*VersionInfo, error)
	}

	// NopExtractor never finds metadata.
	NopExtractor struct{}
)

// Extract implements Extractor.
func (NopExtractor) Extract(context.Context, string) (*Metadata, error) { return nil, nil }

// ExtractVersion implements Extractor.
func (NopExtractor) ExtractVersion(context.Context, string) (*VersionInfo, error) { return nil, nil }

// IsZero reports whether no field is set.
func (m *Metadata) IsZero() bool {
	return m == nil || (m.Name == "" && m.Description == "" && len(m.Examples) == 0 &&
		len(m.Aliases) == 0 && m.AdditionalHelp == "")
}

// HasAlias reports whether alias is declared.
func (m *Metadata) HasAlias(alias string) bool {
	return m != nil && slices.Contains(m.Aliases, alias)
}

// Clone returns a deep copy.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := *m
	c.Examples = slices.Clone(m.Examples)
	c.Aliases = slices.Clone(m.Aliases)
	return &c
}
