package form

import (
	"fmt"

	"github.com/arbml/masader-form/internal/field"
	"github.com/arbml/masader-form/internal/schema"
	"github.com/arbml/masader-form/pkg/types"
)

// AddRow appends a blank row to the nested field name.
func AddRow(s *schema.Schema, rec *types.Record, name string) error {
	f, err := nested(s, name)
	if err != nil {
		return err
	}
	rec.Set(name, append(rec.Rows(name), BlankRow(s, f)))
	return nil
}

// RemoveRow deletes row i of the nested field name.
func RemoveRow(s *schema.Schema, rec *types.Record, name string, i int) error {
	if _, err := nested(s, name); err != nil {
		return err
	}
	rows := rec.Rows(name)
	if i < 0 || i >= len(rows) {
		return fmt.Errorf("%w: %d of %d", types.ErrRowIndex, i, len(rows))
	}
	out := make([]*types.Record, 0, len(rows)-1)
	out = append(out, rows[:i]...)
	out = append(out, rows[i+1:]...)
	rec.Set(name, out)
	return nil
}

// SetRowValue stores raw as sub-field sub of row i. An index equal to the row
// count appends a blank row first.
func SetRowValue(s *schema.Schema, rec *types.Record, name string, i int, sub string, raw any) error {
	f, err := nested(s, name)
	if err != nil {
		return err
	}
	if len(f.SubFields) > 0 && !contains(f.SubFields, sub) {
		return fmt.Errorf("%w: %q has no sub-field %q", types.ErrUnknownField, name, sub)
	}
	rows := rec.Rows(name)
	switch {
	case i == len(rows):
		rows = append(rows, BlankRow(s, f))
	case i < 0 || i > len(rows):
		return fmt.Errorf("%w: %d of %d", types.ErrRowIndex, i, len(rows))
	}
	v, err := cellValue(s, sub, raw)
	if err != nil {
		return err
	}
	rows[i].Set(sub, v)
	rec.Set(name, rows)
	return nil
}

// cellValue coerces raw for sub-fields that share a name with a numeric
// schema field. Everything else is kept as given.
func cellValue(s *schema.Schema, sub string, raw any) (any, error) {
	f, ok := s.Field(sub)
	if !ok || !f.Kind.IsNumeric() {
		return raw, nil
	}
	if text, isText := raw.(string); isText && text == "" {
		return raw, nil
	}
	return field.Coerce(f, raw)
}

// EnsureTrailingBlank trims the rows of name to the collected rows plus
// exactly one blank row at the tail. Cells left in the row that stopped the
// collection are discarded with it.
func EnsureTrailingBlank(s *schema.Schema, rec *types.Record, name string) error {
	f, err := nested(s, name)
	if err != nil {
		return err
	}
	kept := field.Collect(f, rec.Rows(name))
	out := append([]*types.Record{}, kept...)
	rec.Set(name, append(out, BlankRow(s, f)))
	return nil
}

// Collect returns the rows of name that count as entered.
func Collect(s *schema.Schema, rec *types.Record, name string) ([]*types.Record, error) {
	f, err := nested(s, name)
	if err != nil {
		return nil, err
	}
	return field.Collect(f, rec.Rows(name)), nil
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
