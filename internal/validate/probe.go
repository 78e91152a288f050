package validate

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ProbeTimeout bounds a single reachability probe.
const ProbeTimeout = 5 * time.Second

// HTTPProbe checks URLs with a HEAD request, following redirects.
type HTTPProbe struct {
	Client *http.Client
}

// NewHTTPProbe returns a probe using a client with ProbeTimeout.
func NewHTTPProbe() *HTTPProbe {
	return &HTTPProbe{Client: &http.Client{Timeout: ProbeTimeout}}
}

// Reachable reports whether url answers HEAD with a 2xx status after
// redirects. Network errors count as unreachable.
func (p *HTTPProbe) Reachable(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		slog.Debug("url probe failed", "url", url, "error", err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
