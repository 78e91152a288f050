// Package form holds the state operations on a Record: defaults, merging of
// loaded or extracted records, nested row editing and the final payload.
//
// Every operation takes the record explicitly and returns a record in schema
// order holding only schema fields.
package form

import (
	"fmt"
	"time"

	"github.com/arbml/masader-form/internal/field"
	"github.com/arbml/masader-form/internal/schema"
	"github.com/arbml/masader-form/pkg/types"
)

// Diagnostic is a non-fatal note produced while merging input.
type Diagnostic struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Field, d.Message)
}

// ApplyDefaults returns a record with one entry per schema field holding the
// field's default value.
func ApplyDefaults(s *schema.Schema, now time.Time) *types.Record {
	rec := types.NewRecord()
	for _, f := range s.Fields() {
		rec.Set(f.Name, field.Default(f, now))
	}
	return rec
}

// BlankRow returns a row of f with every sub-field at its default.
func BlankRow(s *schema.Schema, f types.Field) *types.Record {
	row := types.NewRecord()
	for _, sub := range f.SubFields {
		row.Set(sub, subDefault(s, sub))
	}
	return row
}

// subDefault is the default of a sub-field: the last option of the same-named
// schema field, 0 when that field is numeric, "" otherwise.
func subDefault(s *schema.Schema, name string) any {
	f, ok := s.Field(name)
	switch {
	case !ok:
		return ""
	case f.HasOptions():
		return f.LastOption()
	case f.Kind.IsNumeric():
		return int64(0)
	default:
		return ""
	}
}

// normalize returns rec laid out in schema order. Missing fields take their
// defaults and keys outside the schema are dropped.
func normalize(s *schema.Schema, rec *types.Record, now time.Time) *types.Record {
	out := types.NewRecord()
	for _, f := range s.Fields() {
		v, ok := rec.Get(f.Name)
		if !ok {
			out.Set(f.Name, field.Default(f, now))
			continue
		}
		out.Set(f.Name, v)
	}
	return out.Clone()
}

// Normalize is normalize with the current time. Values already held by
// rec are not coerced.
func Normalize(s *schema.Schema, rec *types.Record) *types.Record {
	return normalize(s, rec, time.Now())
}

// lookup returns the schema field name, failing with a sentinel error.
func lookup(s *schema.Schema, name string) (types.Field, error) {
	f, ok := s.Field(name)
	if !ok {
		return types.Field{}, fmt.Errorf("%w: %q", types.ErrUnknownField, name)
	}
	return f, nil
}

func nested(s *schema.Schema, name string) (types.Field, error) {
	f, err := lookup(s, name)
	if err != nil {
		return types.Field{}, err
	}
	if f.Kind != types.KindRecordList {
		return types.Field{}, fmt.Errorf("%w: %q", types.ErrNotNested, name)
	}
	return f, nil
}
