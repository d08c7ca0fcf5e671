// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteArchive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	WriteArchive(t, root, `
-- hello/command.cue --
run: "echo hi"
-- user/[id]/show/command.cue --
run: "true"
`)

	tests := map[string]string{
		"hello/command.cue":          "run: \"echo hi\"\n",
		"user/[id]/show/command.cue": "run: \"true\"\n",
	}
	for rel, want := range tests {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			t.Errorf("ReadFile(%s) error = %v", rel, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", rel, data, want)
		}
	}
}

func TestNewTree(t *testing.T) {
	t.Parallel()

	root := NewTree(t, map[string]string{"a/b/c.txt": "x"})
	if _, err := os.Stat(filepath.Join(root, "a", "b", "c.txt")); err != nil {
		t.Errorf("Stat() error = %v", err)
	}
}

func TestSetHomeDir(t *testing.T) {
	dir := t.TempDir()
	SetHomeDir(t, dir)

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}
	if home != dir {
		t.Errorf("UserHomeDir() = %q, want %q", home, dir)
	}
}

func TestMustSetenvRestores(t *testing.T) {
	const key = "CMDTREE_TESTUTIL_PROBE"

	t.Run("set", func(t *testing.T) {
		MustSetenv(t, key, "1")
		if os.Getenv(key) != "1" {
			t.Error("variable not set")
		}
	})
	if _, ok := os.LookupEnv(key); ok {
		t.Error("variable not restored after subtest")
	}
}
