package models

// Record is one reconciled row keyed by canonical column name. Values
// are float64 for money columns, ISO date strings for date columns, and
// passthrough strings otherwise.
type Record map[string]any

// String returns the value under key as a string, or "" when absent or
// not a string.
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// QueryFilter carries the user-entered constraints for one query. The
// tier policy decides which fields actually apply: OwnerID is populated
// only for Owner sessions and is mutually exclusive with PlateContains.
type QueryFilter struct {
	DateStart     string `form:"from" json:"from,omitempty"`
	DateEnd       string `form:"to" json:"to,omitempty"`
	PlateContains string `form:"plate" json:"plate,omitempty"`
	OwnerID       string `form:"-" json:"owner_id,omitempty"`
}
