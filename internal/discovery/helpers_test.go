// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmdtree/cmdtree/internal/metadata"
)

type stubExtractor struct {
	meta    map[string]*metadata.Metadata
	failing map[string]error
}

func (s stubExtractor) Extract(_ context.Context, path string) (*metadata.Metadata, error) {
	if err, ok := s.failing[filepath.Base(filepath.Dir(path))]; ok {
		return nil, err
	}
	return s.meta[filepath.Base(filepath.Dir(path))], nil
}

func (stubExtractor) ExtractVersion(context.Context, string) (*metadata.VersionInfo, error) {
	return nil, nil
}

// writeTree creates every file in files (slash-separated relative path →
// content) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func commandPaths(st *Structure) []string {
	paths := make([]string, 0, len(st.Commands))
	for _, c := range st.Commands {
		paths = append(paths, c.Path)
	}
	return paths
}

func codes(diags []Diagnostic) map[DiagnosticCode]int {
	out := map[DiagnosticCode]int{}
	for _, d := range diags {
		out[d.Code]++
	}
	return out
}
