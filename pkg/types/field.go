package types

import (
	"fmt"
	"strings"
)

// Kind is the type tag of a schema field. The tag selects the default value,
// coercion, widget and required-field check for the field.
type Kind string

// Field kinds, spelled the way the schema document spells them.
const (
	KindString     Kind = "str"
	KindURL        Kind = "url"
	KindInt        Kind = "int"
	KindFloat      Kind = "float"
	KindYear       Kind = "date"
	KindStringList Kind = "List[str]"
	KindRecordList Kind = "List[Dict]"
	KindBool       Kind = "bool"
)

// kindAliases maps accepted spellings onto the canonical kinds.
var kindAliases = map[string]Kind{
	"str":       KindString,
	"string":    KindString,
	"url":       KindURL,
	"int":       KindInt,
	"integer":   KindInt,
	"float":     KindFloat,
	"date":      KindYear,
	"year":      KindYear,
	"list[str]": KindStringList,
	"bool":      KindBool,
	"boolean":   KindBool,
}

// ParseKind parses a schema answer type. Nested record lists carry their
// sub-field names inside the brackets, e.g.
// "List[Dict[Name, Volume, Unit, Dialect]]".
func ParseKind(answerType string) (Kind, []string, error) {
	t := strings.TrimSpace(answerType)
	if k, ok := kindAliases[strings.ToLower(t)]; ok {
		return k, nil, nil
	}
	if strings.HasPrefix(t, "List[Dict") {
		inner := strings.TrimPrefix(t, "List[Dict")
		inner = strings.TrimSuffix(inner, "]")
		inner = strings.TrimPrefix(inner, "[")
		inner = strings.TrimSuffix(inner, "]")
		var subs []string
		for _, s := range strings.Split(inner, ",") {
			if s = strings.TrimSpace(s); s != "" {
				subs = append(subs, s)
			}
		}
		return KindRecordList, subs, nil
	}
	return "", nil, fmt.Errorf("%w: %q", ErrUnknownFieldType, answerType)
}

// IsList reports whether values of this kind are lists.
func (k Kind) IsList() bool {
	return k == KindStringList || k == KindRecordList
}

// IsNumeric reports whether values of this kind are numbers.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat || k == KindYear
}

// Field describes one question of the form.
type Field struct {
	Name               string
	Question           string
	Kind               Kind
	SubFields          []string // Sub-field names for KindRecordList, in column order.
	Required           bool
	Options            []string
	OptionDescriptions map[string]string
	AnswerMin          float64
	AnswerMax          *float64
	ValidationGroup    string
}

// HasOptions reports whether the field is enum-typed.
func (f Field) HasOptions() bool {
	return len(f.Options) > 0
}

// LastOption returns the last declared option, used as the enum default.
func (f Field) LastOption() string {
	if len(f.Options) == 0 {
		return ""
	}
	return f.Options[len(f.Options)-1]
}

// Sentinel returns the first sub-field of a nested field. A row whose
// sentinel is empty ends the list.
func (f Field) Sentinel() string {
	if len(f.SubFields) == 0 {
		return ""
	}
	return f.SubFields[0]
}
