package types

import "time"

// NameField is the schema field holding the dataset name.
const NameField = "Name"

// Draft is a record being authored, persisted between sessions.
type Draft struct {
	DraftID   string    // UUID v7, generated on creation.
	Mode      string    // Schema mode the record was created against.
	Record    *Record   // Field values in schema order.
	CreatedAt time.Time // Timestamp of creation.
	UpdatedAt time.Time // Timestamp of last modification.
}

// Name returns the dataset name of the draft, if any.
func (d *Draft) Name() string {
	if d == nil || d.Record == nil {
		return ""
	}
	return d.Record.String(NameField)
}
