// Package field holds the per-kind behavior of schema fields: default value,
// coercion of raw input, widget selection and the required-field check. All
// kind-specific decisions go through the table in this file.
package field

import (
	"context"
	"fmt"
	"time"

	"github.com/arbml/masader-form/pkg/types"
)

// Probe answers network questions for required-field checks.
type Probe interface {
	// Reachable reports whether url answers with a success status.
	Reachable(ctx context.Context, url string) bool
}

// Kind is the behavior attached to one field kind.
type Kind struct {
	// Zero returns the default value of a field of this kind.
	Zero func(f types.Field, now time.Time) any

	// Coerce converts raw input (JSON-decoded, CLI or form text) into the
	// value shape of this kind.
	Coerce func(f types.Field, raw any) (any, error)

	// Widget names the form widget that renders the field.
	Widget func(f types.Field) string

	// Check is the required-field check. It reports false when the value
	// counts as missing.
	Check func(ctx context.Context, p Probe, f types.Field, v any) bool
}

// Widget names.
const (
	WidgetText        = "text"
	WidgetTextArea    = "textarea"
	WidgetNumber      = "number"
	WidgetRadio       = "radio"
	WidgetSelect      = "select"
	WidgetMultiSelect = "multiselect"
	WidgetTags        = "tags"
	WidgetRows        = "rows"
	WidgetCheckbox    = "checkbox"
)

// maxRadioOptions is the largest option count rendered as radio buttons.
const maxRadioOptions = 5

var kinds = map[types.Kind]Kind{
	types.KindString: {
		Zero:   func(f types.Field, _ time.Time) any { return f.LastOption() },
		Coerce: coerceString,
		Widget: textWidget,
		Check:  func(_ context.Context, _ Probe, _ types.Field, v any) bool { return nonBlank(v) },
	},
	types.KindURL: {
		Zero:   func(f types.Field, _ time.Time) any { return f.LastOption() },
		Coerce: coerceString,
		Widget: func(types.Field) string { return WidgetText },
		Check:  checkURL,
	},
	types.KindInt: {
		Zero:   func(types.Field, time.Time) any { return int64(0) },
		Coerce: coerceInt,
		Widget: func(types.Field) string { return WidgetNumber },
		// Zero counts as unset, so a legitimate 0 answer is rejected too.
		Check: func(_ context.Context, _ Probe, _ types.Field, v any) bool {
			n, ok := v.(int64)
			return !ok || n != 0
		},
	},
	types.KindFloat: {
		Zero:   func(types.Field, time.Time) any { return float64(0) },
		Coerce: coerceFloat,
		Widget: func(types.Field) string { return WidgetNumber },
		Check:  pass,
	},
	types.KindYear: {
		Zero:   func(_ types.Field, now time.Time) any { return int64(now.Year()) },
		Coerce: coerceInt,
		Widget: func(types.Field) string { return WidgetNumber },
		Check:  pass,
	},
	types.KindStringList: {
		Zero: func(f types.Field, _ time.Time) any {
			if f.HasOptions() {
				return []string{f.LastOption()}
			}
			return []string{}
		},
		Coerce: coerceStringList,
		Widget: func(f types.Field) string {
			if f.HasOptions() {
				return WidgetMultiSelect
			}
			return WidgetTags
		},
		Check: func(_ context.Context, _ Probe, _ types.Field, v any) bool {
			list, _ := v.([]string)
			return len(list) > 0
		},
	},
	types.KindRecordList: {
		Zero:   func(types.Field, time.Time) any { return []*types.Record{} },
		Coerce: coerceRows,
		Widget: func(types.Field) string { return WidgetRows },
		Check: func(_ context.Context, _ Probe, f types.Field, v any) bool {
			rows, _ := v.([]*types.Record)
			return len(Collect(f, rows)) > 0
		},
	},
	types.KindBool: {
		Zero:   func(types.Field, time.Time) any { return false },
		Coerce: coerceBool,
		Widget: func(types.Field) string { return WidgetCheckbox },
		Check:  pass,
	},
}

// Of returns the behavior for kind k.
func Of(k types.Kind) (Kind, error) {
	kind, ok := kinds[k]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q", types.ErrUnknownFieldType, k)
	}
	return kind, nil
}

// Default returns the default value for f. Unknown kinds default to "".
func Default(f types.Field, now time.Time) any {
	kind, err := Of(f.Kind)
	if err != nil {
		return ""
	}
	return kind.Zero(f, now)
}

// Coerce converts raw into the value shape of f.
func Coerce(f types.Field, raw any) (any, error) {
	kind, err := Of(f.Kind)
	if err != nil {
		return nil, err
	}
	v, err := kind.Coerce(f, raw)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.Name, err)
	}
	return v, nil
}

// Widget returns the widget name for f.
func Widget(f types.Field) string {
	kind, err := Of(f.Kind)
	if err != nil {
		return WidgetText
	}
	return kind.Widget(f)
}

// Check runs the required-field check for f. Unknown kinds pass.
func Check(ctx context.Context, p Probe, f types.Field, v any) bool {
	kind, err := Of(f.Kind)
	if err != nil {
		return true
	}
	return kind.Check(ctx, p, f, v)
}

func textWidget(f types.Field) string {
	switch {
	case f.HasOptions() && len(f.Options) <= maxRadioOptions:
		return WidgetRadio
	case f.HasOptions():
		return WidgetSelect
	case f.Name == "Description" || f.Name == "Abstract":
		return WidgetTextArea
	default:
		return WidgetText
	}
}

func pass(context.Context, Probe, types.Field, any) bool { return true }

func checkURL(ctx context.Context, p Probe, _ types.Field, v any) bool {
	s, _ := v.(string)
	if !nonBlank(s) || p == nil {
		return false
	}
	return p.Reachable(ctx, s)
}
