// Package app wires the form components together from a Config. The CLI
// and the HTTP server are thin front ends over an App.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arbml/masader-form/internal/fetch"
	"github.com/arbml/masader-form/internal/form"
	"github.com/arbml/masader-form/internal/hosting"
	"github.com/arbml/masader-form/internal/ledger"
	"github.com/arbml/masader-form/internal/publish"
	"github.com/arbml/masader-form/internal/schema"
	"github.com/arbml/masader-form/internal/sqlite"
	"github.com/arbml/masader-form/internal/validate"
	"github.com/arbml/masader-form/pkg/types"
)

// cloneDirName is the catalogue checkout inside the data directory.
const cloneDirName = "catalogue"

// App holds one loaded schema and the services that act on records of it.
type App struct {
	Config    types.Config
	Schema    *schema.Schema
	Drafts    *sqlite.Backend
	Validator *validate.Validator
	Fetcher   *fetch.Client
	Publisher *publish.Publisher

	// Now stamps defaults; tests pin it.
	Now func() time.Time
}

// LedgerPath returns the location of the pull request ledger for cfg.
func LedgerPath(cfg types.Config) string {
	return filepath.Join(cfg.DataDir, ledger.FileName)
}

// Open loads the schema, attaches the draft store and builds the clients.
// A schema failure aborts: nothing can be rendered or validated without it.
func Open(ctx context.Context, cfg types.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	mode := cfg.SchemaMode
	if mode == "" {
		mode = types.DefaultSchemaMode
	}

	s, err := schema.NewLoader(&cfg).Load(ctx, mode)
	if err != nil {
		return nil, err
	}

	host, err := hosting.New(cfg.IdentityURL, cfg.GitHubToken, cfg.Repo)
	if err != nil {
		return nil, fmt.Errorf("hosting client: %w", err)
	}

	drafts := sqlite.NewBackend()
	if err := drafts.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach drafts: %w", err)
	}

	repoURL := cfg.RepoURL
	if repoURL == "" {
		repoURL = publish.CloneURL(cfg.Repo, cfg.GitHubToken)
	}
	volume := cfg.VolumeField
	if volume == "" {
		volume = types.DefaultVolumeField
	}

	a := &App{
		Config: cfg,
		Schema: s,
		Drafts: drafts,
		Validator: &validate.Validator{
			Identity:    host,
			Probe:       validate.NewHTTPProbe(),
			VolumeField: volume,
		},
		Fetcher: fetch.NewClient(cfg.ExtractorURL),
		Publisher: publish.New(host, publish.Options{
			RepoURL:      repoURL,
			WorkDir:      filepath.Join(cfg.DataDir, cloneDirName),
			LedgerPath:   LedgerPath(cfg),
			DatasetsDir:  cfg.DatasetsDir,
			GitUserName:  cfg.GitUserName,
			GitUserEmail: cfg.GitUserEmail,
		}),
		Now: time.Now,
	}
	slog.Debug("app opened", "mode", mode, "repo", cfg.Repo, "data_dir", cfg.DataDir)
	return a, nil
}

// Close detaches the draft store.
func (a *App) Close() error {
	return a.Drafts.Detach()
}

// Defaults returns a fresh record filled with schema defaults.
func (a *App) Defaults() *types.Record {
	return form.ApplyDefaults(a.Schema, a.Now())
}

// Rebuild merges rec over the defaults, so raw JSON shapes come back as
// typed field values.
func (a *App) Rebuild(rec *types.Record) (*types.Record, []form.Diagnostic) {
	return form.Merge(a.Schema, a.Defaults(), rec)
}

// NewDraft stores a draft seeded from incoming, which may be nil.
func (a *App) NewDraft(incoming *types.Record) (*types.Draft, []form.Diagnostic, error) {
	rec, diags := a.Rebuild(incoming)
	d, err := a.Drafts.Create(a.Schema.Mode, rec)
	if err != nil {
		return nil, diags, err
	}
	slog.Info("draft created", "draft", d.DraftID, "dataset", d.Name())
	return d, diags, nil
}

// Draft returns draft id with its record rebuilt through the schema.
func (a *App) Draft(id string) (*types.Draft, error) {
	d, err := a.Drafts.Get(id)
	if err != nil {
		return nil, err
	}
	d.Record, _ = a.Rebuild(d.Record)
	return d, nil
}

// SaveDraft replaces the record of draft id.
func (a *App) SaveDraft(id string, rec *types.Record) (*types.Draft, error) {
	return a.Drafts.Update(id, form.Normalize(a.Schema, rec))
}

// Extract asks the extraction service for a record. A non-empty link wins
// over an uploaded file.
func (a *App) Extract(ctx context.Context, link string, file []byte, fileName string) (*types.Record, error) {
	var src fetch.Source
	switch {
	case link != "":
		var err error
		if src, err = a.Fetcher.Resolve(ctx, link); err != nil {
			return nil, err
		}
	case len(file) > 0:
		src = fetch.Source{FileName: fileName, File: file, ContentType: "application/pdf"}
	}
	return a.Fetcher.Fetch(ctx, src, a.Schema.Mode)
}

// LoadJSON downloads a saved annotation.
func (a *App) LoadJSON(ctx context.Context, url string) (*types.Record, error) {
	return a.Fetcher.LoadJSON(ctx, url)
}

// ReadJSONFile reads a saved annotation from disk.
func (a *App) ReadJSONFile(path string) (*types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return fetch.ReadJSON(f)
}

// Payload returns the serializable form of rec.
func (a *App) Payload(rec *types.Record) *types.Record {
	return form.Payload(a.Schema, rec, form.PayloadOptions{
		AnnotationsFromPaper: a.Config.AnnotationsFromPaper,
	})
}

// SaveFile writes the payload of rec to out, or to
// <save_dir>/<sanitized name>.json when out is empty. It returns the path
// written.
func (a *App) SaveFile(rec *types.Record, out string) (string, error) {
	if out == "" {
		name := rec.String(types.NameField)
		id := publish.Sanitize(name)
		if id == "" {
			return "", fmt.Errorf("%w: %q", types.ErrInvalidName, name)
		}
		out = filepath.Join(a.Config.SaveDir, id+".json")
	}
	data, err := form.Marshal(a.Payload(rec))
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := ledger.WriteFileAtomic(out, data); err != nil {
		return "", err
	}
	slog.Info("payload saved", "path", out)
	return out, nil
}

// Validate checks rec for submission by username.
func (a *App) Validate(ctx context.Context, rec *types.Record, username string) validate.Result {
	return a.Validator.Validate(ctx, a.Schema, rec, username)
}

// ErrNotValid is returned by Submit when the record fails validation.
var ErrNotValid = errors.New("record is not valid")

// Submit validates rec and publishes it. A failed validation returns its
// Result together with ErrNotValid and publishes nothing.
func (a *App) Submit(ctx context.Context, rec *types.Record, username string) (validate.Result, types.PullRequestRef, error) {
	res := a.Validate(ctx, rec, username)
	if !res.OK {
		return res, types.PullRequestRef{}, fmt.Errorf("%w: %s", ErrNotValid, res.Reason)
	}
	ref, err := a.Publisher.Publish(ctx, a.Payload(rec), username)
	return res, ref, err
}

// PullRequests returns the ledger entries.
func (a *App) PullRequests() ([]types.LedgerEntry, error) {
	l, err := ledger.Load(LedgerPath(a.Config))
	if err != nil {
		return nil, err
	}
	return l.Entries, nil
}
