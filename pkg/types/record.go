package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is an ordered mapping from field name to value. Key order is the
// insertion order, which the form keeps equal to schema order, and it is the
// order used when the record is serialized.
//
// Values are one of: string, int64, float64, bool, []string, []*Record,
// json.Number or []any (the last two only before coercion).
type Record struct {
	fields *orderedmap.OrderedMap[string, any]
}

// EnvelopeKey is the wrapper key some sources put around a record.
const EnvelopeKey = "metadata"

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: orderedmap.New[string, any]()}
}

// Set stores value under key, appending key if it is new.
func (r *Record) Set(key string, value any) {
	if r.fields == nil {
		r.fields = orderedmap.New[string, any]()
	}
	r.fields.Set(key, value)
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	if r == nil || r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// String returns the value under key when it is a string, else "".
func (r *Record) String(key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

// Rows returns the nested rows stored under key.
func (r *Record) Rows(key string) []*Record {
	v, _ := r.Get(key)
	rows, _ := v.([]*Record)
	return rows
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Delete removes key. Missing keys are ignored.
func (r *Record) Delete(key string) {
	if r == nil || r.fields == nil {
		return
	}
	r.fields.Delete(key)
}

// Keys returns the keys in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, r.Len())
	r.each(func(k string, _ any) { out = append(out, k) })
	return out
}

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// each calls fn for every entry in key order.
func (r *Record) each(fn func(key string, value any)) {
	if r == nil || r.fields == nil {
		return
	}
	for p := r.fields.Oldest(); p != nil; p = p.Next() {
		fn(p.Key, p.Value)
	}
}

// Unwrap returns the record inside a {"metadata": {...}} envelope, or r
// itself when there is none.
func (r *Record) Unwrap() *Record {
	inner, ok := r.Get(EnvelopeKey)
	if !ok {
		return r
	}
	if rec, isRec := inner.(*Record); isRec {
		return rec
	}
	return r
}

// Clone returns a copy that shares no slices or nested records with r.
func (r *Record) Clone() *Record {
	out := NewRecord()
	r.each(func(k string, v any) { out.Set(k, cloneValue(v)) })
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...)
	case []*Record:
		rows := make([]*Record, len(t))
		for i, row := range t {
			rows[i] = row.Clone()
		}
		return rows
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case *Record:
		return t.Clone()
	default:
		return v
	}
}

// MarshalJSON writes the record as a JSON object in key order. HTML
// characters are left unescaped.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	var err error
	buf.WriteByte('{')
	r.each(func(k string, v any) {
		if err != nil {
			return
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		if err = encodeJSON(&buf, k); err != nil {
			return
		}
		buf.WriteByte(':')
		if err = encodeJSON(&buf, v); err != nil {
			err = fmt.Errorf("encoding %q: %w", k, err)
		}
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeJSON(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// UnmarshalJSON reads a JSON object keeping its key order. Nested objects
// become *Record, arrays become []any and numbers stay json.Number until a
// schema coerces them. The ordered map's own decoder is not used because it
// turns nested objects into unordered maps.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}
	rec, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

func decodeObject(dec *json.Decoder) (*Record, error) {
	rec := NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("record: expected object key, got %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("record: key %q: %w", key, err)
		}
		rec.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		return decodeObject(dec)
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", d)
	}
}
