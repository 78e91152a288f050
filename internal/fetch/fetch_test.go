package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbml/masader-form/pkg/types"
)

func TestNormalizeArxiv(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://arxiv.org/abs/2110.06744v2", "https://arxiv.org/pdf/2110.06744.pdf", true},
		{"https://arxiv.org/abs/2110.06744", "https://arxiv.org/pdf/2110.06744.pdf", true},
		{"https://arxiv.org/pdf/2110.06744v1.pdf", "https://arxiv.org/pdf/2110.06744.pdf", true},
		{"https://arxiv.org/pdf/2110.06744", "https://arxiv.org/pdf/2110.06744.pdf", true},
		{"http://arxiv.org/abs/cs/0112017v1", "https://arxiv.org/pdf/cs/0112017.pdf", true},
		{"https://arxiv.org/abs/math.AG/0601001", "https://arxiv.org/pdf/math.AG/0601001.pdf", true},
		{"https://export.arxiv.org/abs/2301.00001v3", "https://arxiv.org/pdf/2301.00001.pdf", true},
		{"https://arxiv.org/list/cs.CL/recent", "", false},
		{"https://aclanthology.org/2021.wanlp-1.1.pdf", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeArxiv(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveArxiv(t *testing.T) {
	c := &Client{}
	src, err := c.Resolve(context.Background(), " https://arxiv.org/abs/2110.06744v2 ")
	require.NoError(t, err)
	assert.True(t, src.IsLink())
	assert.Equal(t, "https://arxiv.org/pdf/2110.06744.pdf", src.Link)
}

func TestResolveDirectPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/paper.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := &Client{HTTP: srv.Client()}
	ctx := context.Background()

	src, err := c.Resolve(ctx, srv.URL+"/paper.pdf")
	require.NoError(t, err)
	assert.True(t, src.IsFile())
	assert.Equal(t, "paper.pdf", src.FileName)
	assert.Equal(t, []byte("%PDF-1.4"), src.File)

	_, err = c.Resolve(ctx, srv.URL+"/page")
	require.ErrorIs(t, err, types.ErrNotDirectPDF)
	assert.Equal(t, "Cannot retrieve a pdf from the link. Make sure "+srv.URL+"/page is a direct link to a valid pdf", err.Error())

	_, err = c.Resolve(ctx, srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

// extractor records what the extraction service received.
type extractor struct {
	method, link, schema, fileName, file, contentType string
}

func newExtractor(t *testing.T, status int, body string) (*httptest.Server, *extractor) {
	t.Helper()
	got := &extractor{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.contentType = r.Header.Get("Content-Type")
		if strings.HasPrefix(got.contentType, "multipart/") {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			f, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			got.fileName, got.file = hdr.Filename, string(data)
		} else if r.Method == http.MethodPost {
			require.NoError(t, r.ParseForm())
		}
		got.link = r.FormValue("link")
		got.schema = r.FormValue("schema")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestFetchLink(t *testing.T) {
	srv, got := newExtractor(t, http.StatusOK, `{"metadata": {"Name": "Shami", "Year": 2021}}`)
	c := NewClient(srv.URL)

	rec, err := c.Fetch(context.Background(), Source{Link: "https://arxiv.org/pdf/1.pdf"}, "ar")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Year"}, rec.Keys())
	assert.Equal(t, "Shami", rec.String("Name"))

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "https://arxiv.org/pdf/1.pdf", got.link)
	assert.Equal(t, "ar", got.schema)
}

func TestFetchFile(t *testing.T) {
	srv, got := newExtractor(t, http.StatusOK, `{"Name": "Upload"}`)
	c := NewClient(srv.URL)

	rec, err := c.Fetch(context.Background(), Source{FileName: "p.pdf", File: []byte("%PDF")}, "en")
	require.NoError(t, err)
	assert.Equal(t, "Upload", rec.String("Name"))
	assert.Equal(t, "p.pdf", got.fileName)
	assert.Equal(t, "%PDF", got.file)
	assert.Equal(t, "en", got.schema)
}

func TestFetchNoInput(t *testing.T) {
	srv, got := newExtractor(t, http.StatusOK, `{}`)
	rec, err := NewClient(srv.URL).Fetch(context.Background(), Source{}, "ar")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Len())
	assert.Equal(t, http.MethodGet, got.method)
}

func TestFetchFailureCarriesBody(t *testing.T) {
	srv, _ := newExtractor(t, http.StatusUnprocessableEntity, "paper has no dataset")
	_, err := NewClient(srv.URL).Fetch(context.Background(), Source{Link: "x"}, "ar")
	require.ErrorIs(t, err, types.ErrExtraction)
	assert.Equal(t, "paper has no dataset", err.Error())

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, http.StatusUnprocessableEntity, ee.Status)
}

func TestFetchBadJSON(t *testing.T) {
	srv, _ := newExtractor(t, http.StatusOK, "not json")
	_, err := NewClient(srv.URL).Fetch(context.Background(), Source{Link: "x"}, "ar")
	assert.ErrorIs(t, err, types.ErrExtraction)
}

func TestReadJSON(t *testing.T) {
	rec, err := ReadJSON(strings.NewReader(`{"Name": "A", "License": "MIT License"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "License"}, rec.Keys())

	rec, err = ReadJSON(strings.NewReader(`{"metadata": {"Year": 2020, "Name": "B"}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Year", "Name"}, rec.Keys())

	_, err = ReadJSON(strings.NewReader(`[1, 2]`))
	assert.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shami.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"Name": "Shami"}`))
	}))
	defer srv.Close()

	c := &Client{HTTP: srv.Client()}
	rec, err := c.LoadJSON(context.Background(), srv.URL+"/shami.json")
	require.NoError(t, err)
	assert.Equal(t, "Shami", rec.String("Name"))

	_, err = c.LoadJSON(context.Background(), srv.URL+"/other.json")
	assert.Error(t, err)
}
