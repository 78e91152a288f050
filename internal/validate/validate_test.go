package validate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbml/masader-form/internal/form"
	"github.com/arbml/masader-form/internal/schema/schematest"
	"github.com/arbml/masader-form/pkg/types"
)

type users map[string]bool

func (u users) UserExists(_ context.Context, name string) (bool, error) {
	return u[name], nil
}

type brokenIdentity struct{}

func (brokenIdentity) UserExists(context.Context, string) (bool, error) {
	return false, errors.New("network down")
}

type probe map[string]bool

func (p probe) Reachable(_ context.Context, url string) bool { return p[url] }

// complete returns a record that passes every check.
func complete(t *testing.T) *types.Record {
	s := schematest.Load(t)
	rec := form.ApplyDefaults(s, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec.Set("Name", "Shami")
	rec.Set("Link", "https://example.org/shami")
	rec.Set("Volume", float64(117805))
	return rec
}

func newValidator() *Validator {
	return &Validator{
		Identity:    users{"octocat": true},
		Probe:       probe{"https://example.org/shami": true},
		VolumeField: types.DefaultVolumeField,
	}
}

func TestValidateOK(t *testing.T) {
	s := schematest.Load(t)
	res := newValidator().Validate(context.Background(), s, complete(t), " octocat ")
	assert.Equal(t, Result{OK: true}, res)
}

func TestValidateUsername(t *testing.T) {
	s := schematest.Load(t)
	tests := []struct {
		name     string
		identity Identity
		user     string
	}{
		{"empty", users{"": true}, "  "},
		{"unknown", users{"octocat": true}, "ghost"},
		{"lookup error", brokenIdentity{}, "octocat"},
		{"no identity", nil, "octocat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newValidator()
			v.Identity = tt.identity
			res := v.Validate(context.Background(), s, complete(t), tt.user)
			assert.False(t, res.OK)
			assert.Equal(t, UsernameField, res.Field)
			assert.Equal(t, ReasonUsername, res.Reason)
		})
	}
}

func TestValidateFirstFailureOnly(t *testing.T) {
	s := schematest.Load(t)
	rec := complete(t)
	rec.Set("Name", " ")
	rec.Set("Tasks", []string{})

	res := newValidator().Validate(context.Background(), s, rec, "octocat")
	assert.Equal(t, Result{Field: "Name", Reason: "Please enter a valid Name."}, res)
}

func TestValidateRequiredKinds(t *testing.T) {
	s := schematest.Load(t)
	tests := []struct {
		field string
		value any
	}{
		{"Link", "https://unreachable.example"},
		{"Tasks", []string{}},
		{"Language", ""},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			rec := complete(t)
			rec.Set(tt.field, tt.value)
			res := newValidator().Validate(context.Background(), s, rec, "octocat")
			assert.False(t, res.OK)
			assert.Equal(t, tt.field, res.Field)
			assert.Equal(t, "Please enter a valid "+tt.field+".", res.Reason)
		})
	}
}

func TestValidateVolume(t *testing.T) {
	s := schematest.Load(t)
	rec := complete(t)
	rec.Set("Volume", 12.5)

	res := newValidator().Validate(context.Background(), s, rec, "octocat")
	assert.Equal(t, Result{Field: "Volume", Reason: ReasonVolume}, res)
}

func TestValidateVolumeFromText(t *testing.T) {
	s := schematest.Load(t)
	v := newValidator()

	for _, in := range []string{"1,00", "12,3456", "1,,0"} {
		rec := complete(t)
		err := form.SetValue(s, rec, "Volume", in)
		assert.ErrorIs(t, err, types.ErrCoerce, in)
		got, _ := rec.Get("Volume")
		assert.Equal(t, float64(117805), got, "rejected text must not replace %q", in)
	}

	rec := complete(t)
	require.NoError(t, form.SetValue(s, rec, "Volume", "12,000"))
	assert.Equal(t, Result{OK: true}, v.Validate(context.Background(), s, rec, "octocat"))

	// A loaded record keeps its prior volume and reports the bad text.
	in := types.NewRecord()
	in.Set("Volume", "1,00")
	merged, diags := form.Merge(s, complete(t), in)
	require.Len(t, diags, 1)
	assert.Equal(t, "Volume", diags[0].Field)
	got, _ := merged.Get("Volume")
	assert.Equal(t, float64(117805), got)
}

func TestVolumeOK(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{"1,000", true},
		{"12,345,678", true},
		{"999", true},
		{"1000", false},
		{"1,00", false},
		{"", false},
		{"1,000.5", false},
		{int64(1000), true},
		{float64(1234567), true},
		{float64(0), true},
		{12.5, false},
		{int64(-5), false},
		{json.Number("2500"), true},
		{json.Number("2.5"), false},
		{[]string{"1,000"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VolumeOK(tt.in), "%#v", tt.in)
	}
}

func TestHTTPProbe(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/moved":
			http.Redirect(w, r, "/ok", http.StatusFound)
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := &HTTPProbe{Client: srv.Client()}
	ctx := context.Background()
	assert.True(t, p.Reachable(ctx, srv.URL+"/ok"))
	assert.True(t, p.Reachable(ctx, srv.URL+"/moved"))
	assert.False(t, p.Reachable(ctx, srv.URL+"/gone"))
	assert.False(t, p.Reachable(ctx, "http://127.0.0.1:1/unreachable"))
	assert.False(t, p.Reachable(ctx, "::not a url"))

	require.NotEmpty(t, methods)
	for _, m := range methods {
		assert.Equal(t, http.MethodHead, m)
	}
}
