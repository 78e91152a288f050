// Package fetch talks to the metadata-extraction service and loads saved
// annotations. Both return records that still need merging through a
// schema.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/arbml/masader-form/pkg/types"
)

// Source is the input of an extraction: a link, an uploaded file, or
// neither.
type Source struct {
	Link        string
	FileName    string
	File        []byte
	ContentType string
}

// IsLink reports whether the source is a link.
func (s Source) IsLink() bool { return s.Link != "" }

// IsFile reports whether the source is an uploaded file.
func (s Source) IsFile() bool { return s.Link == "" && len(s.File) > 0 }

// NotPDFError reports a link that does not serve a pdf.
type NotPDFError struct {
	Link string
}

func (e *NotPDFError) Error() string {
	return fmt.Sprintf("Cannot retrieve a pdf from the link. Make sure %s is a direct link to a valid pdf", e.Link)
}

func (e *NotPDFError) Unwrap() error { return types.ErrNotDirectPDF }

// ExtractionError carries a non-200 answer of the extraction service. Its
// message is the response body verbatim.
type ExtractionError struct {
	Status int
	Body   string
}

func (e *ExtractionError) Error() string { return e.Body }

func (e *ExtractionError) Unwrap() error { return types.ErrExtraction }

// Client calls the extraction service and downloads papers.
type Client struct {
	ExtractorURL string
	HTTP         *http.Client
}

// NewClient returns a client for the extraction service at extractorURL.
// Extraction can take minutes, so the timeout is generous.
func NewClient(extractorURL string) *Client {
	return &Client{
		ExtractorURL: extractorURL,
		HTTP:         &http.Client{Timeout: 10 * time.Minute},
	}
}

// Resolve turns a paper link into a source. Arxiv links are normalized and
// sent as links; any other link is downloaded and sent as a file when it
// serves application/pdf.
func (c *Client) Resolve(ctx context.Context, link string) (Source, error) {
	link = strings.TrimSpace(link)
	if pdf, ok := NormalizeArxiv(link); ok {
		return Source{Link: pdf}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Source{}, &NotPDFError{Link: link}
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return Source{}, fmt.Errorf("downloading %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Source{}, fmt.Errorf("downloading %s: status %d", link, resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/pdf" {
		return Source{}, &NotPDFError{Link: link}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Source{}, fmt.Errorf("downloading %s: %w", link, err)
	}
	return Source{FileName: fileName(link), File: body, ContentType: ct}, nil
}

// Fetch asks the extraction service for a record. A link is posted as a
// form, a file as a multipart upload, and an empty source becomes a plain
// GET. The metadata envelope is unwrapped.
func (c *Client) Fetch(ctx context.Context, src Source, mode string) (*types.Record, error) {
	req, err := c.request(ctx, src, mode)
	if err != nil {
		return nil, fmt.Errorf("building extraction request: %w", err)
	}

	start := time.Now()
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExtraction, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", types.ErrExtraction, err)
	}
	slog.Debug("extraction finished", "status", resp.StatusCode, "elapsed", time.Since(start))
	if resp.StatusCode != http.StatusOK {
		return nil, &ExtractionError{Status: resp.StatusCode, Body: string(body)}
	}

	rec, err := ReadJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExtraction, err)
	}
	return rec, nil
}

func (c *Client) request(ctx context.Context, src Source, mode string) (*http.Request, error) {
	switch {
	case src.IsLink():
		form := url.Values{"schema": {mode}, "link": {src.Link}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ExtractorURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil

	case src.IsFile():
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if err := mw.WriteField("schema", mode); err != nil {
			return nil, err
		}
		name := src.FileName
		if name == "" {
			name = "paper.pdf"
		}
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(src.File); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ExtractorURL, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil

	default:
		return http.NewRequestWithContext(ctx, http.MethodGet, c.ExtractorURL, nil)
	}
}

func (c *Client) http() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func fileName(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return "paper.pdf"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "paper.pdf"
	}
	return name
}
