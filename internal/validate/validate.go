// Package validate gates submission of a record. It stops at the first
// failure so the operator gets one actionable message at a time.
package validate

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/arbml/masader-form/internal/field"
	"github.com/arbml/masader-form/internal/schema"
	"github.com/arbml/masader-form/pkg/types"
)

// Failure reasons.
const (
	ReasonUsername = "Please enter a valid GitHub username."
	ReasonVolume   = "Please enter a valid volume, for example 1,000"
)

// UsernameField is the Result.Field reported for an invalid username.
const UsernameField = "username"

var volumePattern = regexp.MustCompile(`^\d{1,3}(,\d{3})*$`)

// Identity looks up accounts on the hosting platform.
type Identity interface {
	UserExists(ctx context.Context, username string) (bool, error)
}

// Result is the outcome of a validation. A failed Result names the first
// failing field.
type Result struct {
	OK     bool   `json:"ok"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Validator checks records against a schema.
type Validator struct {
	Identity    Identity
	Probe       field.Probe
	VolumeField string
}

// Validate checks username, then walks the schema fields in order running
// the required-field check and the volume format check.
func (v *Validator) Validate(ctx context.Context, s *schema.Schema, rec *types.Record, username string) Result {
	if !v.userExists(ctx, strings.TrimSpace(username)) {
		return Result{Field: UsernameField, Reason: ReasonUsername}
	}

	for _, f := range s.Fields() {
		val, _ := rec.Get(f.Name)
		if f.Required && !field.Check(ctx, v.Probe, f, val) {
			slog.Debug("required field missing", "field", f.Name)
			return Result{Field: f.Name, Reason: "Please enter a valid " + f.Name + "."}
		}
		if f.Name == v.VolumeField && !VolumeOK(val) {
			slog.Debug("volume format rejected", "field", f.Name, "value", val)
			return Result{Field: f.Name, Reason: ReasonVolume}
		}
	}
	return Result{OK: true}
}

// userExists fails closed: empty names, lookup errors and unknown accounts
// are all invalid.
func (v *Validator) userExists(ctx context.Context, username string) bool {
	if username == "" || v.Identity == nil {
		return false
	}
	ok, err := v.Identity.UserExists(ctx, username)
	if err != nil {
		slog.Debug("username lookup failed", "user", username, "error", err)
		return false
	}
	return ok
}

// VolumeOK reports whether v is a whole number written with thousands
// separators, e.g. "1,000". Numbers are formatted with separators first;
// non-integral and negative numbers are rejected.
func VolumeOK(v any) bool {
	switch n := v.(type) {
	case string:
		return volumePattern.MatchString(n)
	case int:
		return volumePattern.MatchString(humanize.Comma(int64(n)))
	case int64:
		return volumePattern.MatchString(humanize.Comma(n))
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n >= math.MaxInt64 || n < math.MinInt64 {
			return false
		}
		return volumePattern.MatchString(humanize.Comma(int64(n)))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return VolumeOK(i)
		}
		f, err := n.Float64()
		return err == nil && VolumeOK(f)
	default:
		return false
	}
}
