package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/arbml/masader-form/pkg/types"
)

// ReadJSON decodes a saved or extracted annotation, keeping key order and
// unwrapping the metadata envelope.
func ReadJSON(r io.Reader) (*types.Record, error) {
	rec := types.NewRecord()
	if err := json.NewDecoder(r).Decode(rec); err != nil {
		return nil, fmt.Errorf("decoding annotation: %w", err)
	}
	return rec.Unwrap(), nil
}

// LoadJSON downloads a saved annotation from url.
func (c *Client) LoadJSON(ctx context.Context, url string) (*types.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", url, err)
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("loading %s: status %d: %s", url, resp.StatusCode, body)
	}
	rec, err := ReadJSON(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", url, err)
	}
	return rec, nil
}
