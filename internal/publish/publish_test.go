package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbml/masader-form/internal/git/gittest"
	"github.com/arbml/masader-form/internal/hosting"
	"github.com/arbml/masader-form/internal/ledger"
	"github.com/arbml/masader-form/pkg/types"
)

// fakeHost is an in-memory hosting API.
type fakeHost struct {
	pulls     map[int]string
	created   []string
	failPulls bool
}

func (h *fakeHost) DefaultBranch(context.Context) (string, error) { return "main", nil }

func (h *fakeHost) PullState(_ context.Context, n int) (string, error) {
	st, ok := h.pulls[n]
	if !ok {
		return "", fmt.Errorf("pull %d not found", n)
	}
	return st, nil
}

func (h *fakeHost) CreatePull(_ context.Context, title, body, head, base string) (*hosting.Pull, error) {
	if h.failPulls {
		return nil, errors.New("api unavailable")
	}
	if h.pulls == nil {
		h.pulls = map[int]string{}
	}
	n := len(h.pulls) + 1
	h.pulls[n] = types.PullStateOpen
	h.created = append(h.created, title+"|"+body+"|"+head+"|"+base)
	return &hosting.Pull{Number: n, URL: fmt.Sprintf("https://github.com/ARBML/masader/pull/%d", n), State: "open"}, nil
}

func setup(t *testing.T) (*Publisher, *fakeHost, string, Options) {
	t.Helper()
	bare := gittest.NewRemote(t)
	dir := t.TempDir()
	opts := Options{
		RepoURL:      bare,
		WorkDir:      filepath.Join(dir, "clone"),
		LedgerPath:   filepath.Join(dir, ledger.FileName),
		DatasetsDir:  "datasets",
		GitUserName:  "Form Bot",
		GitUserEmail: "bot@example.org",
	}
	host := &fakeHost{}
	return New(host, opts), host, bare, opts
}

func payload(name, license string) *types.Record {
	rec := types.NewRecord()
	rec.Set("Name", name)
	rec.Set("License", license)
	return rec
}

func TestSanitize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"CALLHOME: Egyptian Arabic", "callhome_egyptian_arabic"},
		{"  Shami  ", "shami"},
		{"a/b\\c", "a_b_c"},
		{"v1.0 <beta>", "v1_0_beta_"},
		{`q"u*o|t?e`, "q_u_o_t_e"},
		{"???", ""},
		{"", ""},
		{"Dataset [v2]", "dataset_v2_"},
		{"a~b", "a_b"},
		{"x^y", "x_y"},
		{"ab@{c}", "ab_c_"},
		{"tab\there\x7f", "tab_here_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), tt.in)
	}
	assert.Equal(t, "add-shami", BranchName("shami"))
}

func TestBranchNamesAreValidRefs(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	names := []string{
		"CALLHOME: Egyptian Arabic", "Dataset [v2]", "a~b", "x^y", "ab@{c}",
		"v1.0 <beta>", "..lock", "back\\slash", "new\nline", "émotions arabes",
	}
	for _, name := range names {
		branch := BranchName(Sanitize(name))
		out, err := exec.Command("git", "check-ref-format", "--branch", branch).CombinedOutput()
		assert.NoError(t, err, "%q -> %q: %s", name, branch, out)
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Adding Shami to the catalogue", Title("Shami"))
	assert.Equal(t, "This is a pull request by @octocat to add a Shami to the catalogue.", Body("Shami", "octocat"))
	assert.Equal(t, "https://tok@github.com/ARBML/masader.git", CloneURL("ARBML/masader", "tok"))
	assert.Equal(t, "https://github.com/ARBML/masader.git", CloneURL("ARBML/masader", ""))
}

func TestPublishCreatesThenReuses(t *testing.T) {
	p, host, bare, opts := setup(t)
	ctx := context.Background()

	ref, err := p.Publish(ctx, payload("CALLHOME: Egyptian Arabic", "LDC User Agreement"), "octocat")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCreated, ref.Outcome)
	assert.Equal(t, "add-callhome_egyptian_arabic", ref.Branch)
	assert.Equal(t, "datasets/callhome_egyptian_arabic.json", ref.Path)
	assert.Equal(t, 1, ref.Number)

	require.Len(t, host.created, 1)
	assert.Equal(t, "Adding CALLHOME: Egyptian Arabic to the catalogue|"+
		"This is a pull request by @octocat to add a CALLHOME: Egyptian Arabic to the catalogue.|"+
		"add-callhome_egyptian_arabic|main", host.created[0])

	content := gittest.Show(t, bare, ref.Branch, ref.Path)
	assert.Equal(t, "{\n    \"Name\": \"CALLHOME: Egyptian Arabic\",\n    \"License\": \"LDC User Agreement\"\n}", content)
	assert.Equal(t, "Creating datasets/callhome_egyptian_arabic.json", gittest.Git(t, bare, "log", "-1", "--format=%s", ref.Branch))
	assert.Equal(t, "bot@example.org", gittest.Git(t, bare, "log", "-1", "--format=%ae", ref.Branch))

	l, err := ledger.Load(opts.LedgerPath)
	require.NoError(t, err)
	require.Len(t, l.Entries, 1)
	assert.Equal(t, types.LedgerEntry{
		Name:   "CALLHOME: Egyptian Arabic",
		URL:    "https://github.com/ARBML/masader/pull/1",
		Branch: "add-callhome_egyptian_arabic",
		State:  types.PullStateOpen,
		Number: 1,
	}, l.Entries[0])

	head := gittest.Head(t, bare, ref.Branch)

	// Same record again: nothing to commit.
	ref, err = p.Publish(ctx, payload("CALLHOME: Egyptian Arabic", "LDC User Agreement"), "octocat")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeNoChanges, ref.Outcome)
	assert.Equal(t, 1, ref.Number)
	assert.Equal(t, head, gittest.Head(t, bare, ref.Branch))
	assert.Len(t, host.created, 1)

	// Changed record: commit on the same branch, no new pull request.
	ref, err = p.Publish(ctx, payload("CALLHOME: Egyptian Arabic", "unknown"), "octocat")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeUpdated, ref.Outcome)
	assert.NotEqual(t, head, gittest.Head(t, bare, ref.Branch))
	assert.Equal(t, "Updating datasets/callhome_egyptian_arabic.json", gittest.Git(t, bare, "log", "-1", "--format=%s", ref.Branch))
	assert.Len(t, host.created, 1)

	l, err = ledger.Load(opts.LedgerPath)
	require.NoError(t, err)
	assert.Len(t, l.Entries, 1)
}

func TestPublishClosesStaleEntries(t *testing.T) {
	p, host, _, opts := setup(t)
	ctx := context.Background()

	_, err := p.Publish(ctx, payload("First", "MIT License"), "octocat")
	require.NoError(t, err)
	host.pulls[1] = types.PullStateClosed

	_, err = p.Publish(ctx, payload("Second", "MIT License"), "octocat")
	require.NoError(t, err)

	l, err := ledger.Load(opts.LedgerPath)
	require.NoError(t, err)
	require.Len(t, l.Entries, 2)
	assert.Equal(t, types.PullStateClosed, l.Entries[0].State)
	assert.Equal(t, types.PullStateOpen, l.Entries[1].State)
}

func TestPublishInvalidName(t *testing.T) {
	p, _, _, opts := setup(t)
	_, err := p.Publish(context.Background(), payload(" ?? ", "x"), "octocat")
	require.ErrorIs(t, err, types.ErrInvalidName)
	assert.NoDirExists(t, opts.WorkDir)
}

// rejectPushes installs a pre-receive hook that refuses every push.
func rejectPushes(t *testing.T, bare string) {
	t.Helper()
	hooks := filepath.Join(bare, "hooks")
	require.NoError(t, os.MkdirAll(hooks, 0o755))
	hook := filepath.Join(hooks, "pre-receive")
	require.NoError(t, os.WriteFile(hook, []byte("#!/bin/sh\necho rejected >&2\nexit 1\n"), 0o755))
}

func TestPublishGitFailureLeavesLedger(t *testing.T) {
	p, host, bare, opts := setup(t)
	ctx := context.Background()

	_, err := p.Publish(ctx, payload("Shami", "MIT License"), "octocat")
	require.NoError(t, err)
	before, err := os.ReadFile(opts.LedgerPath)
	require.NoError(t, err)

	t.Run("clone fails", func(t *testing.T) {
		broken := opts
		broken.RepoURL = filepath.Join(t.TempDir(), "missing.git")
		_, err := New(host, broken).Publish(ctx, payload("Gulf", "MIT License"), "octocat")
		require.Error(t, err)

		after, err := os.ReadFile(opts.LedgerPath)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	rejectPushes(t, bare)

	t.Run("update push rejected", func(t *testing.T) {
		_, err := p.Publish(ctx, payload("Shami", "CC BY 4.0"), "octocat")
		require.Error(t, err)

		after, err := os.ReadFile(opts.LedgerPath)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("new branch push rejected", func(t *testing.T) {
		_, err := p.Publish(ctx, payload("Levant", "MIT License"), "octocat")
		require.Error(t, err)
		assert.Len(t, host.created, 1)

		after, err := os.ReadFile(opts.LedgerPath)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestPublishHostingFailureLeavesLedger(t *testing.T) {
	p, host, _, opts := setup(t)
	host.failPulls = true

	_, err := p.Publish(context.Background(), payload("Shami", "MIT License"), "octocat")
	require.Error(t, err)

	l, err := ledger.Load(opts.LedgerPath)
	require.NoError(t, err)
	assert.Empty(t, l.Entries)
}
