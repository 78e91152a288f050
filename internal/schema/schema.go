// Package schema loads the field-definition document that drives the form.
// A Schema is read-only once built; its field order is the render order and
// the serialization order of records.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/arbml/masader-form/pkg/types"
)

// Schema is the ordered set of fields for one schema mode.
type Schema struct {
	Mode string

	fields   []types.Field
	byName   map[string]int
	required []string
	groups   map[string][]string
	order    []string // validation group names, first appearance first
}

// Fields returns the fields in document order.
func (s *Schema) Fields() []types.Field {
	out := make([]types.Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the field named name.
func (s *Schema) Field(name string) (types.Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return types.Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether name is a schema field.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Names returns the field names in document order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Required returns the required field names in document order.
func (s *Schema) Required() []string {
	return append([]string{}, s.required...)
}

// Groups returns the validation group names in order of first appearance.
func (s *Schema) Groups() []string {
	return append([]string{}, s.order...)
}

// Group returns the members of a validation group in document order.
func (s *Schema) Group(name string) []string {
	return append([]string{}, s.groups[name]...)
}

// Kind returns the kind of field name.
func (s *Schema) Kind(name string) (types.Kind, bool) {
	f, ok := s.Field(name)
	return f.Kind, ok
}

// New builds a schema from fields, computing the derived indices.
func New(mode string, fields []types.Field) (*Schema, error) {
	s := &Schema{
		Mode:   mode,
		byName: make(map[string]int, len(fields)),
		groups: make(map[string][]string),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field with empty name", types.ErrSchemaUnavailable)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", types.ErrSchemaUnavailable, f.Name)
		}
		s.byName[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
		if f.Required {
			s.required = append(s.required, f.Name)
		}
		if g := f.ValidationGroup; g != "" {
			if _, seen := s.groups[g]; !seen {
				s.order = append(s.order, g)
			}
			s.groups[g] = append(s.groups[g], f.Name)
		}
	}
	return s, nil
}

// Parse decodes a schema document. The document is a JSON object mapping
// field name to its definition; key order is kept.
func Parse(mode string, data []byte) (*Schema, error) {
	doc := types.NewRecord()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: parsing document: %v", types.ErrSchemaUnavailable, err)
	}

	fields := make([]types.Field, 0, doc.Len())
	for _, name := range doc.Keys() {
		raw, _ := doc.Get(name)
		def, ok := raw.(*types.Record)
		if !ok {
			return nil, fmt.Errorf("%w: field %q is not an object", types.ErrSchemaUnavailable, name)
		}
		f, err := parseField(name, def)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrSchemaUnavailable, err)
		}
		fields = append(fields, f)
	}
	return New(mode, fields)
}

func parseField(name string, def *types.Record) (types.Field, error) {
	answerType := def.String("answer_type")
	if answerType == "" {
		answerType = def.String("output_type")
	}
	kind, subs, err := types.ParseKind(answerType)
	if err != nil {
		return types.Field{}, fmt.Errorf("field %q: %w", name, err)
	}

	f := types.Field{
		Name:            name,
		Question:        def.String("question"),
		Kind:            kind,
		SubFields:       subs,
		ValidationGroup: def.String("validation_group"),
	}

	if v, ok := def.Get("required"); ok {
		b, isBool := v.(bool)
		if !isBool {
			return types.Field{}, fmt.Errorf("field %q: required must be a boolean", name)
		}
		f.Required = b
	}
	if v, ok := def.Get("answer_min"); ok && v != nil {
		n, err := number(v)
		if err != nil {
			return types.Field{}, fmt.Errorf("field %q: answer_min: %w", name, err)
		}
		f.AnswerMin = n
	}
	if v, ok := def.Get("answer_max"); ok && v != nil {
		n, err := number(v)
		if err != nil {
			return types.Field{}, fmt.Errorf("field %q: answer_max: %w", name, err)
		}
		f.AnswerMax = &n
	}
	if v, ok := def.Get("options"); ok && v != nil {
		list, isList := v.([]any)
		if !isList {
			return types.Field{}, fmt.Errorf("field %q: options must be a list", name)
		}
		for _, o := range list {
			f.Options = append(f.Options, fmt.Sprint(o))
		}
	}
	if v, ok := def.Get("option_description"); ok && v != nil {
		desc, isObj := v.(*types.Record)
		if !isObj {
			return types.Field{}, fmt.Errorf("field %q: option_description must be an object", name)
		}
		f.OptionDescriptions = make(map[string]string, desc.Len())
		for _, k := range desc.Keys() {
			f.OptionDescriptions[k] = desc.String(k)
		}
	}
	return f, nil
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
