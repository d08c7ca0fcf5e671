// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"context"
	_ "embed"
	"path/filepath"

	"github.com/cmdtree/cmdtree/pkg/cueutil"
)

//go:embed metadata_schema.cue
var schemaBytes []byte

type (
	// CUEExtractor reads `meta` blocks from .cue handler files. Other file
	// types yield no metadata.
	CUEExtractor struct{}

	metaFile struct {
		Meta *Metadata `json:"meta,omitempty"`
	}
)

// NewCUEExtractor returns the default extractor.
func NewCUEExtractor() *CUEExtractor {
	return &CUEExtractor{}
}

// Extract returns the file's meta block, or nil when it declares none.
func (e *CUEExtractor) Extract(ctx context.Context, path string) (*Metadata, error) {
	if !isCUE(path) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := cueutil.DecodeFile[metaFile](path, schemaBytes, "#MetaFile", cueutil.WithConcrete(false))
	if err != nil {
		return nil, err
	}
	if result.Value.Meta.IsZero() {
		return nil, nil
	}
	return result.Value.Meta, nil
}

// ExtractVersion returns the version declared by a version file.
func (e *CUEExtractor) ExtractVersion(ctx context.Context, path string) (*VersionInfo, error) {
	if !isCUE(path) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := cueutil.DecodeFile[VersionInfo](path, schemaBytes, "#VersionFile", cueutil.WithConcrete(false))
	if err != nil {
		return nil, err
	}
	info := result.Value
	if info.Metadata.IsZero() {
		info.Metadata = nil
	}
	return info, nil
}

func isCUE(path string) bool {
	return filepath.Ext(path) == ".cue"
}
