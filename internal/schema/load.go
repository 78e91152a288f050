package schema

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/arbml/masader-form/pkg/types"
)

// Loader fetches schema documents. When Path is set the document is read
// from disk and BaseURL is ignored.
type Loader struct {
	BaseURL string       // Remote directory holding <mode>.json.
	Path    string       // Local file, plain or file:// form.
	Token   string       // Bearer token for the remote source.
	Client  *http.Client // Defaults to a client with a 30s timeout.
}

// NewLoader returns a loader configured from cfg.
func NewLoader(cfg *types.Config) *Loader {
	return &Loader{
		BaseURL: cfg.SchemaBaseURL,
		Path:    cfg.SchemaPath,
		Token:   cfg.GitHubToken,
	}
}

// Load fetches and parses the schema for mode. Every failure wraps
// types.ErrSchemaUnavailable.
func (l *Loader) Load(ctx context.Context, mode string) (*Schema, error) {
	data, err := l.read(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSchemaUnavailable, err)
	}
	s, err := Parse(mode, data)
	if err != nil {
		return nil, err
	}
	slog.Debug("schema loaded", "mode", mode, "fields", len(s.fields))
	return s, nil
}

// URL returns the remote location of the schema for mode.
func (l *Loader) URL(mode string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/" + mode + ".json"
}

func (l *Loader) read(ctx context.Context, mode string) ([]byte, error) {
	if l.Path != "" {
		path := strings.TrimPrefix(l.Path, "file://")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return data, nil
	}
	if l.BaseURL == "" {
		return nil, fmt.Errorf("no schema source configured")
	}

	url := l.URL(mode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if l.Token != "" {
		req.Header.Set("Authorization", "Bearer "+l.Token)
		req.Header.Set("Accept", "application/vnd.github.v3.raw")
	}

	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
