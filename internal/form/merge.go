package form

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/arbml/masader-form/internal/field"
	"github.com/arbml/masader-form/internal/schema"
	"github.com/arbml/masader-form/pkg/types"
)

// Merge overwrites the fields of prior that are present in incoming,
// coercing each value to its field kind. Fields absent from incoming keep
// their prior value. Unknown keys are dropped and coercion failures keep the
// prior value; both produce a diagnostic. prior is not modified.
func Merge(s *schema.Schema, prior, incoming *types.Record) (*types.Record, []Diagnostic) {
	now := time.Now()
	if prior == nil {
		prior = ApplyDefaults(s, now)
	}
	out := normalize(s, prior, now)
	if incoming == nil {
		return out, nil
	}
	incoming = incoming.Unwrap()

	var diags []Diagnostic
	for _, key := range incoming.Keys() {
		f, ok := s.Field(key)
		if !ok {
			diags = append(diags, Diagnostic{Field: key, Message: "not in schema, dropped"})
			continue
		}
		raw, _ := incoming.Get(key)
		v, err := coerce(s, f, raw)
		if err != nil {
			diags = append(diags, Diagnostic{Field: key, Message: err.Error()})
			continue
		}
		out.Set(key, v)
	}
	return out, diags
}

// SetValue coerces raw and stores it under name. For nested fields raw may be
// a JSON array in text form.
func SetValue(s *schema.Schema, rec *types.Record, name string, raw any) error {
	f, err := lookup(s, name)
	if err != nil {
		return err
	}
	if text, ok := raw.(string); ok && f.Kind == types.KindRecordList {
		raw, err = decodeRows(text)
		if err != nil {
			return err
		}
	}
	v, err := coerce(s, f, raw)
	if err != nil {
		return err
	}
	rec.Set(name, v)
	return nil
}

// coerce converts raw for f. Nested values are laid out as rows: a non-empty
// list replaces the rows by position with missing sub-fields defaulted, an
// empty list becomes one blank row.
func coerce(s *schema.Schema, f types.Field, raw any) (any, error) {
	v, err := field.Coerce(f, raw)
	if err != nil {
		return nil, err
	}
	if f.Kind != types.KindRecordList {
		return v, nil
	}
	rows := v.([]*types.Record)
	if len(rows) == 0 {
		return []*types.Record{BlankRow(s, f)}, nil
	}
	for i, row := range rows {
		rows[i] = fillRow(s, f, row)
	}
	return rows, nil
}

// fillRow lays row out in sub-field order, defaulting missing sub-fields.
func fillRow(s *schema.Schema, f types.Field, row *types.Record) *types.Record {
	if len(f.SubFields) == 0 {
		return row
	}
	out := types.NewRecord()
	for _, sub := range f.SubFields {
		v, ok := row.Get(sub)
		if !ok {
			v = subDefault(s, sub)
		}
		out.Set(sub, v)
	}
	return out
}

func decodeRows(text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []any{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var rows []*types.Record
	if err := dec.Decode(&rows); err != nil {
		return nil, errors.Join(types.ErrCoerce, err)
	}
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}
