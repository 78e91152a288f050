package field

import "github.com/arbml/masader-form/pkg/types"

// Collect returns the rows up to, not including, the first row whose
// sentinel (first sub-field) is empty. Rows after that point are dropped even
// when they hold values, and so is a row that fills every sub-field except
// the sentinel.
func Collect(f types.Field, rows []*types.Record) []*types.Record {
	sentinel := f.Sentinel()
	out := make([]*types.Record, 0, len(rows))
	for _, row := range rows {
		if !SentinelSet(sentinel, row) {
			break
		}
		out = append(out, row)
	}
	return out
}

// SentinelSet reports whether row has a non-empty value for sentinel.
func SentinelSet(sentinel string, row *types.Record) bool {
	if sentinel == "" || row == nil {
		return false
	}
	v, ok := row.Get(sentinel)
	if !ok || v == nil {
		return false
	}
	s, err := scalarString(v)
	if err != nil {
		return true
	}
	return s != ""
}
