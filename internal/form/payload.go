package form

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/arbml/masader-form/internal/field"
	"github.com/arbml/masader-form/internal/schema"
	"github.com/arbml/masader-form/pkg/types"
)

// AnnotationsKey is the payload key of the per-field provenance map.
const AnnotationsKey = "annotations_from_paper"

// Fields whose values never come from the paper.
var notFromPaper = map[string]bool{
	"Citations": true,
	"Added By":  true,
}

// PayloadOptions controls extras added to the final document.
type PayloadOptions struct {
	AnnotationsFromPaper bool
}

// Payload returns the final document for rec: schema order, nested rows cut
// at the first empty sentinel, and the provenance map when requested.
func Payload(s *schema.Schema, rec *types.Record, opts PayloadOptions) *types.Record {
	out := normalize(s, rec, time.Now())
	for _, f := range s.Fields() {
		if f.Kind != types.KindRecordList {
			continue
		}
		rows := field.Collect(f, out.Rows(f.Name))
		out.Set(f.Name, append([]*types.Record{}, rows...))
	}

	if opts.AnnotationsFromPaper {
		ann := types.NewRecord()
		for _, name := range s.Names() {
			if notFromPaper[name] {
				ann.Set(name, -1)
			} else {
				ann.Set(name, 1)
			}
		}
		out.Set(AnnotationsKey, ann)
	}
	return out
}

// Marshal encodes rec as JSON with a four-space indent and a trailing
// newline. HTML characters are not escaped.
func Marshal(rec *types.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
