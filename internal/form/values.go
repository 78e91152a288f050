package form

import (
	"net/url"
	"strconv"
	"time"

	"github.com/arbml/masader-form/internal/field"
	"github.com/arbml/masader-form/internal/schema"
	"github.com/arbml/masader-form/pkg/types"
)

// RowKey is the form key of sub-field sub in row i of field name.
func RowKey(name string, i int, sub string) string {
	return name + "_" + strconv.Itoa(i) + "_" + sub
}

// ParseValues rebuilds a record from flat form values. Plain fields use their
// name as key; nested rows use RowKey. Rows are read from index 0 for as long
// as the previous row's sentinel is set. Fields missing from values keep the
// prior value, except checkboxes, which read as false when absent.
func ParseValues(s *schema.Schema, prior *types.Record, values url.Values) (*types.Record, []Diagnostic) {
	now := time.Now()
	if prior == nil {
		prior = ApplyDefaults(s, now)
	}
	out := normalize(s, prior, now)

	var diags []Diagnostic
	for _, f := range s.Fields() {
		var (
			raw any
			ok  bool
		)
		switch f.Kind {
		case types.KindRecordList:
			raw, ok = parseRows(f, values)
		case types.KindBool:
			raw, ok = values.Get(f.Name), true
		case types.KindStringList:
			raw, ok = parseList(f, values)
		default:
			_, ok = values[f.Name]
			raw = values.Get(f.Name)
		}
		if !ok {
			continue
		}

		v, err := coerce(s, f, raw)
		if err != nil {
			diags = append(diags, Diagnostic{Field: f.Name, Message: err.Error()})
			continue
		}
		if f.Kind == types.KindRecordList {
			v, diags = coerceCells(s, f, v.([]*types.Record), diags)
		}
		out.Set(f.Name, v)
	}
	return out, diags
}

// parseList reads a multi-select (one value per option) or a single
// comma-separated text value.
func parseList(f types.Field, values url.Values) (any, bool) {
	vs, ok := values[f.Name]
	if !ok {
		return nil, false
	}
	if len(vs) == 1 && !f.HasOptions() {
		return vs[0], true
	}
	list := make([]any, 0, len(vs))
	for _, v := range vs {
		if v != "" {
			list = append(list, v)
		}
	}
	return list, true
}

func parseRows(f types.Field, values url.Values) (any, bool) {
	if len(f.SubFields) == 0 {
		return nil, false
	}
	sentinel := f.Sentinel()
	var rows []any
	for i := 0; ; i++ {
		if _, present := values[RowKey(f.Name, i, sentinel)]; !present {
			break
		}
		row := types.NewRecord()
		for _, sub := range f.SubFields {
			if vs, ok := values[RowKey(f.Name, i, sub)]; ok && len(vs) > 0 {
				row.Set(sub, vs[0])
			}
		}
		rows = append(rows, row)
		if !field.SentinelSet(sentinel, row) {
			break
		}
	}
	if rows == nil {
		return nil, false
	}
	return rows, true
}

func coerceCells(s *schema.Schema, f types.Field, rows []*types.Record, diags []Diagnostic) ([]*types.Record, []Diagnostic) {
	for i, row := range rows {
		for _, sub := range row.Keys() {
			raw, _ := row.Get(sub)
			v, err := cellValue(s, sub, raw)
			if err != nil {
				diags = append(diags, Diagnostic{Field: RowKey(f.Name, i, sub), Message: err.Error()})
				continue
			}
			row.Set(sub, v)
		}
	}
	return rows, diags
}
