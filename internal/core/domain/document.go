package domain

import (
	"encoding/json"
	"time"
)

// Document is one record of a back-office resource (booking, blog post, ...).
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarshalJSON flattens the document into {"id", <fields...>, "created_at", "updated_at"}.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+3)
	for k, v := range d.Fields {
		out[k] = v
	}
	out["id"] = d.ID
	out["created_at"] = d.CreatedAt
	out["updated_at"] = d.UpdatedAt
	return json.Marshal(out)
}

// SortField orders a listing.
type SortField struct {
	Field      string
	Descending bool
}

// Ref is the hex id of another stored record (user_id, service_id, ...).
type Ref string

// Timestamp field names. They match the names existing records were written with.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)
