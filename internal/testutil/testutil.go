// Package testutil writes fake executables for tests that run real processes.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteStub writes an executable shell stub that exits successfully.
// t is the active test; dir is the output directory; name is the executable file name.
func WriteStub(t *testing.T, dir string, name string) string {
	t.Helper()
	return WriteStubWithExit(t, dir, name, 0)
}

// WriteStubWithExit writes an executable shell stub that exits with the provided code.
// t is the active test; dir is the output directory; name is the executable file name.
func WriteStubWithExit(t *testing.T, dir string, name string, exitCode int) string {
	t.Helper()
	return writeScript(t, dir, name, fmt.Sprintf("#!/bin/sh\nexit %d\n", exitCode))
}

// WriteStubEcho writes an executable shell stub that prints its arguments and
// the value of the environment variable envVar, one per line, then exits 0.
func WriteStubEcho(t *testing.T, dir string, name string, envVar string) string {
	t.Helper()
	content := fmt.Sprintf("#!/bin/sh\nfor arg in \"$@\"; do\n  echo \"$arg\"\ndone\necho \"%s=$%s\"\n", envVar, envVar)
	return writeScript(t, dir, name, content)
}

func writeScript(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}
