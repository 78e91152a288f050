// Package render draws the schema-driven annotation form as HTML.
package render

import (
	"strconv"
	"strings"

	"github.com/arbml/masader-form/internal/field"
	"github.com/arbml/masader-form/internal/form"
	"github.com/arbml/masader-form/internal/schema"
	"github.com/arbml/masader-form/pkg/types"
)

// Message kinds.
const (
	MessageError   = "error"
	MessageSuccess = "success"
	MessageInfo    = "info"
)

// Message is a note shown above the form.
type Message struct {
	Kind string
	Text string
	Link string
}

// Page is the input of a form render.
type Page struct {
	DraftID  string
	Mode     string
	Username string
	Record   *types.Record
	Messages []Message
}

// Option is one choice of an enum widget.
type Option struct {
	Value    string
	Selected bool
}

// Cell is one sub-field input of a nested row.
type Cell struct {
	Key     string
	SubName string
	Value   string
	Options []Option
}

// Row is one nested record.
type Row struct {
	Index int
	Cells []Cell
}

// FieldView is everything a widget template needs.
type FieldView struct {
	Name      string
	Required  bool
	Question  string
	OptHelp   []string // "option: description" lines, in option order
	Widget    string
	Value     string
	Checked   bool
	Options   []Option
	SubFields []string
	Rows      []Row
}

type pageView struct {
	Page
	Fields []FieldView
}

func buildView(s *schema.Schema, p Page) pageView {
	rec := form.Normalize(s, p.Record)
	view := pageView{Page: p}
	for _, f := range s.Fields() {
		if f.Kind == types.KindRecordList {
			// Render rows with exactly one trailing blank row.
			_ = form.EnsureTrailingBlank(s, rec, f.Name)
		}
		v, _ := rec.Get(f.Name)
		view.Fields = append(view.Fields, buildField(s, f, v, rec))
	}
	return view
}

func buildField(s *schema.Schema, f types.Field, v any, rec *types.Record) FieldView {
	fv := FieldView{
		Name:     f.Name,
		Required: f.Required,
		Question: f.Question,
		Widget:   field.Widget(f),
	}
	for _, o := range f.Options {
		if d, ok := f.OptionDescriptions[o]; ok {
			fv.OptHelp = append(fv.OptHelp, o+": "+d)
		}
	}

	switch f.Kind {
	case types.KindRecordList:
		fv.SubFields = f.SubFields
		for i, row := range rec.Rows(f.Name) {
			r := Row{Index: i}
			for _, sub := range f.SubFields {
				cv, _ := row.Get(sub)
				c := Cell{Key: form.RowKey(f.Name, i, sub), SubName: sub, Value: text(cv)}
				if sf, ok := s.Field(sub); ok && sf.HasOptions() {
					c.Options = options(sf.Options, []string{c.Value})
				}
				r.Cells = append(r.Cells, c)
			}
			fv.Rows = append(fv.Rows, r)
		}
	case types.KindStringList:
		list, _ := v.([]string)
		fv.Value = strings.Join(list, ", ")
		fv.Options = options(f.Options, list)
	case types.KindBool:
		fv.Checked, _ = v.(bool)
	default:
		fv.Value = text(v)
		fv.Options = options(f.Options, []string{fv.Value})
	}
	return fv
}

func options(all, selected []string) []Option {
	if len(all) == 0 {
		return nil
	}
	sel := make(map[string]bool, len(selected))
	for _, s := range selected {
		sel[s] = true
	}
	out := make([]Option, len(all))
	for i, o := range all {
		out[i] = Option{Value: o, Selected: sel[o]}
	}
	return out
}

// text renders a scalar value for an input element.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ", ")
	default:
		if s, ok := v.(interface{ String() string }); ok {
			return s.String()
		}
		return ""
	}
}
