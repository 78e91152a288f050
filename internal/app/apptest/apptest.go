// Package apptest stands up the external services an App talks to: a
// GitHub-compatible API, the extraction service and a site to probe.
package apptest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/arbml/masader-form/internal/git/gittest"
	"github.com/arbml/masader-form/internal/schema/schematest"
	"github.com/arbml/masader-form/pkg/types"
)

// User is the account the fake API knows.
const User = "octocat"

// Env holds the fake services and a Config pointing at them.
type Env struct {
	Config types.Config

	API       *httptest.Server
	Extractor *httptest.Server
	Site      *httptest.Server

	mu      sync.Mutex
	pulls   map[int]string
	created []string

	// Extracted is what the extraction service returns, inside the
	// metadata envelope.
	Extracted map[string]any
}

// New starts the services and writes the fixture schema to a temp dir.
func New(tb testing.TB) *Env {
	tb.Helper()
	e := &Env{
		pulls: map[int]string{},
		Extracted: map[string]any{
			"Name":    "Extracted Corpus",
			"License": "MIT License",
			"Tasks":   "machine translation, other",
		},
	}

	e.API = httptest.NewServer(http.HandlerFunc(e.serveAPI))
	tb.Cleanup(e.API.Close)
	e.Extractor = httptest.NewServer(http.HandlerFunc(e.serveExtractor))
	tb.Cleanup(e.Extractor.Close)
	e.Site = httptest.NewServer(http.HandlerFunc(serveSite))
	tb.Cleanup(e.Site.Close)

	dir := tb.TempDir()
	schemaPath := filepath.Join(dir, "ar.json")
	if err := os.WriteFile(schemaPath, schematest.Document, 0o644); err != nil {
		tb.Fatal(err)
	}

	e.Config = types.Config{
		SchemaMode:   types.DefaultSchemaMode,
		SchemaPath:   schemaPath,
		ExtractorURL: e.Extractor.URL + "/run",
		IdentityURL:  e.API.URL,
		Repo:         types.DefaultRepo,
		DatasetsDir:  types.DefaultDatasetsDir,
		DataDir:      filepath.Join(dir, "data"),
		SaveDir:      filepath.Join(dir, "saved"),
		VolumeField:  types.DefaultVolumeField,
		GitUserName:  "Form Bot",
		GitUserEmail: "bot@example.org",
	}
	return e
}

// WithRemote points the Config at a local bare catalogue repository. It
// skips the test when git is not installed.
func (e *Env) WithRemote(tb testing.TB) string {
	tb.Helper()
	bare := gittest.NewRemote(tb)
	e.Config.RepoURL = bare
	return bare
}

// Link returns a URL on the probe site that answers HEAD with 200.
func (e *Env) Link() string {
	return e.Site.URL + "/dataset"
}

// PDF returns a URL on the probe site serving application/pdf.
func (e *Env) PDF() string {
	return e.Site.URL + "/paper.pdf"
}

// Created returns "title|head|base" for each pull request opened.
func (e *Env) Created() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.created...)
}

// ClosePull marks pull request n closed.
func (e *Env) ClosePull(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pulls[n] = types.PullStateClosed
}

func (e *Env) serveAPI(w http.ResponseWriter, r *http.Request) {
	repo := "/repos/" + types.DefaultRepo
	switch {
	case r.URL.Path == "/users/"+User:
		writeJSON(w, http.StatusOK, map[string]any{"login": User})
	case strings.HasPrefix(r.URL.Path, "/users/"):
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	case r.URL.Path == repo:
		writeJSON(w, http.StatusOK, map[string]any{"name": "masader", "default_branch": "main"})
	case r.URL.Path == repo+"/pulls" && r.Method == http.MethodPost:
		var req struct{ Title, Head, Base string }
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		e.mu.Lock()
		n := len(e.pulls) + 1
		e.pulls[n] = types.PullStateOpen
		e.created = append(e.created, req.Title+"|"+req.Head+"|"+req.Base)
		e.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{
			"number":   n,
			"state":    types.PullStateOpen,
			"html_url": fmt.Sprintf("https://github.com/%s/pull/%d", types.DefaultRepo, n),
		})
	case strings.HasPrefix(r.URL.Path, repo+"/pulls/"):
		n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, repo+"/pulls/"))
		e.mu.Lock()
		state, ok := e.pulls[n]
		e.mu.Unlock()
		if err != nil || !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"number": n, "state": state})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	}
}

func (e *Env) serveExtractor(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("link") == "" && r.MultipartForm == nil {
			http.Error(w, "either link or file is required", http.StatusBadRequest)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"metadata": e.Extracted})
}

func serveSite(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/paper.pdf":
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4\n"))
	case "/dataset":
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
