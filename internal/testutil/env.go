// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"runtime"
	"testing"
)

// MustSetenv sets key for the rest of the test and restores the previous
// value on cleanup. Tests using it must not call t.Parallel.
func MustSetenv(t testing.TB, key, value string) {
	t.Helper()

	prev, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
	t.Cleanup(func() { restoreEnv(key, prev, had) })
}

// MustUnsetenv unsets key for the rest of the test.
func MustUnsetenv(t testing.TB, key string) {
	t.Helper()

	prev, had := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset %s: %v", key, err)
	}
	t.Cleanup(func() { restoreEnv(key, prev, had) })
}

// SetHomeDir points the platform's home variable (HOME, or USERPROFILE on
// Windows) at dir for the rest of the test.
func SetHomeDir(t testing.TB, dir string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		MustSetenv(t, "USERPROFILE", dir)
		return
	}
	MustSetenv(t, "HOME", dir)
}

// MustMkdirAll creates path and its parents.
func MustMkdirAll(t testing.TB, path string, perm os.FileMode) {
	t.Helper()

	if err := os.MkdirAll(path, perm); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

// MustChdir changes the working directory for the rest of the test.
func MustChdir(t testing.TB, dir string) {
	t.Helper()

	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory to %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("failed to restore working directory: %v", err)
		}
	})
}

func restoreEnv(key, prev string, had bool) {
	if had {
		_ = os.Setenv(key, prev)
		return
	}
	_ = os.Unsetenv(key)
}
