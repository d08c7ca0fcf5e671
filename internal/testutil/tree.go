// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/txtar"
)

// WriteTree creates files under root. Keys are slash-separated paths relative
// to root; parent directories are created as needed.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		MustMkdirAll(t, filepath.Dir(path), 0o755)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
}

// WriteArchive writes a txtar listing ("-- name --" headers followed by file
// contents) under root.
//
//	testutil.WriteArchive(t, root, `
//	-- hello/command.cue --
//	run: "echo hello"
//	`)
func WriteArchive(t testing.TB, root, listing string) {
	t.Helper()

	if err := txtar.Write(txtar.Parse([]byte(listing)), root); err != nil {
		t.Fatalf("failed to write archive under %s: %v", root, err)
	}
}

// NewTree returns a fresh temporary root holding files.
func NewTree(t testing.TB, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	WriteTree(t, root, files)
	return root
}
