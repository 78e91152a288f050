package field

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/arbml/masader-form/pkg/types"
)

func nonBlank(v any) bool {
	s, _ := v.(string)
	return strings.TrimSpace(s) != ""
}

func coerceString(_ types.Field, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []string:
		return strings.Join(v, ","), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			s, err := scalarString(e)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return scalarString(v)
	}
}

// scalarString renders a JSON scalar as text.
func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: cannot use %T as text", types.ErrCoerce, v)
	}
}

// groupedNumber matches number text written with thousands separators.
var groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})*(\.\d+)?$`)

// numberText trims s and drops its thousands separators. Commas are only
// accepted in well-formed groups of three, so "1,00" is not read as 100.
func numberText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ",") {
		return s, nil
	}
	if !groupedNumber.MatchString(s) {
		return "", fmt.Errorf("%w: %q has misplaced thousands separators", types.ErrCoerce, s)
	}
	return strings.ReplaceAll(s, ",", ""), nil
}

func coerceInt(_ types.Field, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return int64(0), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return intFromFloat(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", types.ErrCoerce, v)
		}
		return intFromFloat(f)
	case string:
		s, err := numberText(v)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return int64(0), nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", types.ErrCoerce, v)
		}
		return intFromFloat(f)
	default:
		return nil, fmt.Errorf("%w: cannot use %T as integer", types.ErrCoerce, raw)
	}
}

func intFromFloat(f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("%w: %v is not an integer", types.ErrCoerce, f)
	}
	return int64(f), nil
}

func coerceFloat(_ types.Field, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return float64(0), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", types.ErrCoerce, v)
		}
		return f, nil
	case string:
		s, err := numberText(v)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return float64(0), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", types.ErrCoerce, v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: cannot use %T as number", types.ErrCoerce, raw)
	}
}

func coerceBool(_ types.Field, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", types.ErrCoerce, v)
		}
		return f != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0", "":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not a boolean", types.ErrCoerce, v)
	default:
		return nil, fmt.Errorf("%w: cannot use %T as boolean", types.ErrCoerce, raw)
	}
}

// SplitList splits comma-separated text into trimmed, non-empty items.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func coerceStringList(_ types.Field, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return []string{}, nil
	case string:
		return SplitList(v), nil
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, err := scalarString(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot use %T as list", types.ErrCoerce, raw)
	}
}

// coerceRows converts raw rows into records holding only the sub-fields of
// f. JSON numbers in cells become int64 or float64, other scalars are kept.
func coerceRows(f types.Field, raw any) (any, error) {
	var items []any
	switch v := raw.(type) {
	case nil:
		return []*types.Record{}, nil
	case []*types.Record:
		for _, row := range v {
			items = append(items, row)
		}
	case []any:
		items = v
	default:
		return nil, fmt.Errorf("%w: cannot use %T as rows", types.ErrCoerce, raw)
	}

	rows := make([]*types.Record, 0, len(items))
	for i, item := range items {
		src, err := asRecord(item)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		row := types.NewRecord()
		for _, key := range src.Keys() {
			if len(f.SubFields) > 0 && !hasSubField(f, key) {
				continue
			}
			v, _ := src.Get(key)
			row.Set(key, normalizeCell(v))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func asRecord(item any) (*types.Record, error) {
	switch v := item.(type) {
	case *types.Record:
		return v, nil
	case map[string]any:
		rec := types.NewRecord()
		for k, e := range v {
			rec.Set(k, e)
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("%w: cannot use %T as row", types.ErrCoerce, item)
	}
}

func hasSubField(f types.Field, name string) bool {
	for _, s := range f.SubFields {
		if s == name {
			return true
		}
	}
	return false
}

func normalizeCell(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
