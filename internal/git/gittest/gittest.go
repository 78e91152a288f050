// Package gittest builds throwaway repositories for tests.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// NewRemote creates a bare repository whose main branch holds one commit
// with a README and an empty datasets directory marker. It skips the test
// when git is not installed.
func NewRemote(tb testing.TB) string {
	tb.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		tb.Skip("git not installed")
	}
	root := tb.TempDir()
	bare := filepath.Join(root, "remote.git")
	seed := filepath.Join(root, "seed")

	Git(tb, root, "init", "--bare", "-b", "main", bare)
	Git(tb, root, "init", "-b", "main", seed)
	Git(tb, seed, "config", "user.name", "Seed")
	Git(tb, seed, "config", "user.email", "seed@example.org")
	if err := os.MkdirAll(filepath.Join(seed, "datasets"), 0o755); err != nil {
		tb.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(seed, "datasets", ".keep"), nil, 0o644); err != nil {
		tb.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(seed, "README.md"), []byte("catalogue\n"), 0o644); err != nil {
		tb.Fatal(err)
	}
	Git(tb, seed, "add", "-A")
	Git(tb, seed, "commit", "-m", "initial")
	Git(tb, seed, "remote", "add", "origin", bare)
	Git(tb, seed, "push", "origin", "main")
	return bare
}

// Git runs git in dir and returns its trimmed output, failing the test on
// error.
func Git(tb testing.TB, dir string, args ...string) string {
	tb.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// Head returns the commit id of branch in the bare repository.
func Head(tb testing.TB, bare, branch string) string {
	tb.Helper()
	return Git(tb, bare, "rev-parse", "refs/heads/"+branch)
}

// Show returns the content of file at branch in the bare repository.
func Show(tb testing.TB, bare, branch, file string) string {
	tb.Helper()
	return Git(tb, bare, "show", branch+":"+file)
}
