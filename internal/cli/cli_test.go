package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arbml/masader-form/internal/app"
	"github.com/arbml/masader-form/internal/app/apptest"
	"github.com/arbml/masader-form/internal/validate"
	"github.com/arbml/masader-form/pkg/types"
)

type harness struct {
	env       *apptest.Env
	configDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	env := apptest.New(t)
	t.Setenv("MASADER_SCHEMA_PATH", env.Config.SchemaPath)
	t.Setenv("MASADER_IDENTITY_URL", env.Config.IdentityURL)
	t.Setenv("MASADER_EXTRACTOR_URL", env.Config.ExtractorURL)
	t.Setenv("MASADER_SAVE_DIR", env.Config.SaveDir)
	t.Setenv("MASADER_REPO_URL", "")
	t.Setenv("MASADER_CONFIG_DIR", "")
	t.Setenv("MASADER_DATA_DIR", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv(envGitHubToken, "")
	t.Setenv(envGitUserName, env.Config.GitUserName)
	t.Setenv(envGitUserEmail, env.Config.GitUserEmail)
	return &harness{env: env, configDir: filepath.Join(t.TempDir(), "config")}
}

// run executes the CLI and returns stdout, stderr and the exit code.
func (h *harness) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	base := []string{"--config-dir", h.configDir, "--data-dir", h.env.Config.DataDir}
	code := Run(append(base, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// ok runs the CLI and fails the test unless it exits 0.
func (h *harness) ok(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, code := h.run(t, args...)
	require.Equal(t, exitSuccess, code, "args %v\nstdout: %s\nstderr: %s", args, out, errOut)
	return out
}

func (h *harness) newDraft(t *testing.T, args ...string) string {
	t.Helper()
	return strings.TrimSpace(h.ok(t, append([]string{"new"}, args...)...))
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out := h.ok(t, "version")
	assert.Contains(t, out, "masader v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestInitWritesConfig(t *testing.T) {
	h := newHarness(t)
	out := h.ok(t, "init")
	assert.Contains(t, out, "masader initialized successfully")

	data, err := os.ReadFile(filepath.Join(h.configDir, configFileExt))
	require.NoError(t, err)
	var cfg configFile
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, types.DefaultRepo, cfg.Repo)
	assert.Equal(t, types.DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, types.DefaultSchemaMode, cfg.SchemaMode)

	_, err = os.Stat(filepath.Join(h.env.Config.DataDir, "drafts.db"))
	assert.NoError(t, err)

	// A second init keeps an edited config.
	edited := append(data, []byte("save_dir: elsewhere\n")...)
	require.NoError(t, os.WriteFile(filepath.Join(h.configDir, configFileExt), edited, 0o644))
	h.ok(t, "init")
	again, err := os.ReadFile(filepath.Join(h.configDir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, edited, again)
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(h.configDir, configFileExt),
		[]byte("repo: someone/catalogue\nserver:\n  addr: \":9000\"\n"), 0o644))

	flags.configDir = h.configDir
	flags.dataDir = h.env.Config.DataDir
	t.Cleanup(func() { flags = rootFlags{} })
	t.Setenv("MASADER_REPO", "")

	cfg, err := resolveConfig()
	require.NoError(t, err)
	assert.Equal(t, "someone/catalogue", cfg.Repo)
	assert.Equal(t, ":9000", cfg.ServerAddr)
	assert.Equal(t, h.env.Config.SchemaPath, cfg.SchemaPath, "env override")
	assert.Equal(t, h.env.Config.DataDir, cfg.DataDir)
	assert.Equal(t, "Form Bot", cfg.GitUserName)

	t.Setenv("MASADER_SERVER_ADDR", ":9100")
	cfg, err = resolveConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.ServerAddr)
}

func TestSchemaCommand(t *testing.T) {
	h := newHarness(t)
	out := h.ok(t, "schema")
	assert.Contains(t, out, "Schema ar: 15 fields")
	assert.Contains(t, out, "List[Dict[Name, Volume, Unit, Dialect]]")
	assert.Contains(t, out, "Accessibility: License, Cost")
}

func TestSchemaUnavailableIsSystemError(t *testing.T) {
	h := newHarness(t)
	t.Setenv("MASADER_SCHEMA_PATH", filepath.Join(t.TempDir(), "missing.json"))

	_, errOut, code := h.run(t, "schema")
	assert.Equal(t, exitSysError, code)
	assert.Contains(t, errOut, "schema unavailable")
}

func TestDraftLifecycle(t *testing.T) {
	h := newHarness(t)
	id := h.newDraft(t)

	out := h.ok(t, "set", id, "Name", "CALLHOME: Egyptian Arabic")
	assert.Equal(t, "Name: CALLHOME: Egyptian Arabic\n", out)
	out = h.ok(t, "set", id, "Volume", "12,000")
	assert.Equal(t, "Volume: 12000\n", out)
	h.ok(t, "set", id, "Tasks", "machine translation, other")

	_, errOut, code := h.run(t, "set", id, "Year", "soon")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "value does not match field type")
	_, _, code = h.run(t, "set", id, "Colour", "blue")
	assert.Equal(t, exitUserError, code)

	out = h.ok(t, "show", id)
	assert.Contains(t, out, "ID:        "+id)
	assert.Contains(t, out, "Name*: CALLHOME: Egyptian Arabic")
	assert.Contains(t, out, "Tasks*: machine translation, other")

	out = h.ok(t, "--json", "show", id)
	assert.True(t, strings.HasPrefix(out, "{\n    \"Name\": \"CALLHOME: Egyptian Arabic\""), out)
	assert.Contains(t, out, `"Volume": 12000`)

	out = h.ok(t, "drafts")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "CALLHOME: Egyptian Arabic")
	assert.Contains(t, out, "updated")

	path := strings.TrimSpace(h.ok(t, "save", id))
	assert.Equal(t, filepath.Join(h.env.Config.SaveDir, "callhome_egyptian_arabic.json"), path)
	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, h.ok(t, "--json", "show", id), string(saved))

	h.ok(t, "rm", id)
	_, _, code = h.run(t, "rm", id)
	assert.Equal(t, exitUserError, code)
	_, _, code = h.run(t, "show", id)
	assert.Equal(t, exitUserError, code)
	_, _, code = h.run(t, "show", "not-a-uuid")
	assert.Equal(t, exitUserError, code)

	assert.Equal(t, "No drafts.\n", h.ok(t, "drafts"))
}

func TestSubsetCommands(t *testing.T) {
	h := newHarness(t)
	id := h.newDraft(t)

	// A fresh draft shows one blank row.
	out := h.ok(t, "subset", "set", id, "0", "Name", "Levant")
	assert.Equal(t, "Subsets[0]: Name=Levant, Volume=0, Unit=images, Dialect=Saudi Arabia\n", out)
	out = h.ok(t, "subset", "set", id, "0", "Volume", "1,200")
	assert.Contains(t, out, "Volume=1200")
	out = h.ok(t, "subset", "set", id, "1", "Name", "Gulf")
	assert.Contains(t, out, "Subsets[1]: Name=Gulf")

	out = h.ok(t, "subset", "add", id)
	assert.Equal(t, "Subsets row 2 added\n", out)
	h.ok(t, "subset", "rm", id, "0")

	out = h.ok(t, "--json", "show", id)
	assert.Contains(t, out, `"Name": "Gulf"`)
	assert.NotContains(t, out, "Levant")

	_, _, code := h.run(t, "subset", "rm", id, "9")
	assert.Equal(t, exitUserError, code)
	_, _, code = h.run(t, "subset", "set", id, "0", "Colour", "x")
	assert.Equal(t, exitUserError, code)
	_, _, code = h.run(t, "subset", "--field", "Name", "add", id)
	assert.Equal(t, exitUserError, code)
	_, _, code = h.run(t, "subset", "rm", id, "-1")
	assert.Equal(t, exitUserError, code)
}

func TestNewFromSources(t *testing.T) {
	h := newHarness(t)

	file := filepath.Join(t.TempDir(), "saved.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"metadata": {"Name": "From File", "Bogus": 1}}`), 0o644))
	out, errOut, code := h.run(t, "new", "--json-file", file)
	require.Equal(t, exitSuccess, code, errOut)
	assert.Contains(t, errOut, "warning: Bogus: not in schema, dropped")
	assert.Contains(t, h.ok(t, "show", strings.TrimSpace(out)), "Name*: From File")

	id := h.newDraft(t, "--paper", h.env.PDF())
	assert.Contains(t, h.ok(t, "show", id), "Name*: Extracted Corpus")

	pdf := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\n"), 0o644))
	id = h.newDraft(t, "--pdf", pdf)
	assert.Contains(t, h.ok(t, "show", id), "License*: MIT License")

	_, errOut, code = h.run(t, "new", "--paper", h.env.Link())
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "Cannot retrieve a pdf from the link")

	_, _, code = h.run(t, "new", "--json-file", filepath.Join(t.TempDir(), "none.json"))
	assert.Equal(t, exitUserError, code)
	_, _, code = h.run(t, "new", "--paper", h.env.PDF(), "--pdf", pdf)
	assert.Equal(t, exitUserError, code)
}

func TestValidateCommand(t *testing.T) {
	h := newHarness(t)
	id := h.newDraft(t)

	_, errOut, code := h.run(t, "validate", id, "--user", "ghost")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, validate.ReasonUsername)

	_, errOut, code = h.run(t, "validate", id, "--user", apptest.User)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "Name: Please enter a valid Name.")

	h.ok(t, "set", id, "Name", "Shami")
	h.ok(t, "set", id, "Link", h.env.Link())
	assert.Equal(t, "All fields are valid.\n", h.ok(t, "validate", id, "-u", apptest.User))

	out := h.ok(t, "--json", "validate", id, "-u", apptest.User)
	assert.JSONEq(t, `{"ok": true}`, out)
}

func TestPublishAndPRs(t *testing.T) {
	h := newHarness(t)
	t.Setenv("MASADER_REPO_URL", h.env.WithRemote(t))
	id := h.newDraft(t)
	h.ok(t, "set", id, "Name", "Shami")
	h.ok(t, "set", id, "Link", h.env.Link())

	_, _, code := h.run(t, "publish", id)
	assert.Equal(t, exitUserError, code)

	out := h.ok(t, "publish", id, "--user", apptest.User)
	assert.Contains(t, out, "Pull request created: https://github.com/ARBML/masader/pull/1")
	assert.Contains(t, out, "branch: add-shami")

	out = h.ok(t, "publish", id, "--user", apptest.User)
	assert.Contains(t, out, "No changes to publish")

	h.ok(t, "set", id, "Volume", "3,000")
	out = h.ok(t, "publish", id, "--user", apptest.User)
	assert.Contains(t, out, "Pull request updated: https://github.com/ARBML/masader/pull/1")

	out = h.ok(t, "prs", "--csv")
	assert.Equal(t, "name,url,branch,state,number\nShami,https://github.com/ARBML/masader/pull/1,add-shami,open,1\n", out)
	out = h.ok(t, "prs")
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "add-shami")
}

func TestPRsEmpty(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "No pull requests.\n", h.ok(t, "prs"))
	assert.Equal(t, "name,url,branch,state,number\n", h.ok(t, "prs", "--csv"))
	assert.JSONEq(t, "[]", h.ok(t, "--json", "prs"))
}

func TestUnknownCommandIsUserError(t *testing.T) {
	h := newHarness(t)
	_, _, code := h.run(t, "frobnicate")
	assert.Equal(t, exitUserError, code)
	_, _, code = h.run(t, "show")
	assert.Equal(t, exitUserError, code)
}

func TestFail(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("loading: %w", types.ErrDraftNotFound), exitUserError},
		{fmt.Errorf("x: %w", app.ErrNotValid), exitUserError},
		{types.ErrInvalidName, exitUserError},
		{types.ErrSchemaUnavailable, exitSysError},
		{errors.New("disk on fire"), exitSysError},
		{userError(types.ErrSchemaUnavailable), exitUserError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(fail(tt.err)), tt.err.Error())
	}
	assert.NoError(t, fail(nil))
	assert.Equal(t, exitUserError, exitCode(errors.New("unknown flag")))
}
