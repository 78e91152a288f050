package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRemote creates a bare repository with one commit on main and returns
// its path.
func newRemote(t *testing.T) string {
	t.Helper()
	if !Available() {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	root := t.TempDir()
	bare := filepath.Join(root, "remote.git")
	_, err := run(ctx, root, "init", "--bare", "-b", "main", bare)
	require.NoError(t, err)

	seed := filepath.Join(root, "seed")
	_, err = run(ctx, root, "init", "-b", "main", seed)
	require.NoError(t, err)
	r := &Repo{Dir: seed}
	require.NoError(t, r.ConfigUser(ctx, "Seed", "seed@example.org"))
	require.NoError(t, os.WriteFile(filepath.Join(seed, "README.md"), []byte("catalogue\n"), 0o644))
	require.NoError(t, r.Add(ctx, "README.md"))
	require.NoError(t, r.Commit(ctx, "initial"))
	_, err = r.run(ctx, "remote", "add", "origin", bare)
	require.NoError(t, err)
	require.NoError(t, r.Push(ctx, "origin", "main"))
	return bare
}

func TestCloneCommitPush(t *testing.T) {
	bare := newRemote(t)
	ctx := context.Background()

	r, err := Clone(ctx, bare, filepath.Join(t.TempDir(), "clone"))
	require.NoError(t, err)
	require.NoError(t, r.ConfigUser(ctx, "Tester", "tester@example.org"))

	dirty, err := r.IsDirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, r.CheckoutNew(ctx, "add-shami"))
	branch, err := r.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "add-shami", branch)

	require.NoError(t, os.MkdirAll(filepath.Join(r.Dir, "datasets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(r.Dir, "datasets", "shami.json"), []byte("{}\n"), 0o644))
	dirty, err = r.IsDirty(ctx)
	require.NoError(t, err)
	assert.True(t, dirty)

	require.NoError(t, r.Add(ctx, "datasets/shami.json"))
	require.NoError(t, r.Commit(ctx, "Creating datasets/shami.json"))
	require.NoError(t, r.PushUpstream(ctx, "origin", "add-shami"))

	other, err := Clone(ctx, bare, filepath.Join(t.TempDir(), "other"))
	require.NoError(t, err)
	require.NoError(t, other.Checkout(ctx, "add-shami"))
	require.NoError(t, other.Pull(ctx, "origin", "add-shami"))
	_, err = os.Stat(filepath.Join(other.Dir, "datasets", "shami.json"))
	assert.NoError(t, err)
}

func TestCommandError(t *testing.T) {
	bare := newRemote(t)
	ctx := context.Background()

	r, err := Clone(ctx, bare, filepath.Join(t.TempDir(), "clone"))
	require.NoError(t, err)

	err = r.Checkout(ctx, "no-such-branch")
	require.Error(t, err)
	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"checkout", "no-such-branch"}, ce.Args)
	assert.Contains(t, err.Error(), "git checkout no-such-branch")
}

func TestRedact(t *testing.T) {
	e := &CommandError{
		Args:   []string{"clone", "https://secret@github.com/ARBML/masader.git", "dir"},
		Output: "fatal: could not read from https://secret@github.com/ARBML/masader.git",
		Err:    errors.New("exit status 128"),
	}
	assert.NotContains(t, e.Error(), "secret")
	assert.Contains(t, e.Error(), "https://***@github.com/ARBML/masader.git")
}
