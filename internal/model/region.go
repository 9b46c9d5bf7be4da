package model

// RegionRecord is one tabular row: a region code (the join key), a display
// name, and the raw cell text for each attribute column.
type RegionRecord struct {
	Code  string            `json:"code"`
	Name  string            `json:"name"`
	Cells map[string]string `json:"cells"`
}

// Cell returns the raw text of an attribute column.
func (r RegionRecord) Cell(key string) (string, bool) {
	v, ok := r.Cells[key]
	return v, ok
}

// Value parses an attribute column. Absent columns are missing.
func (r RegionRecord) Value(key string) Value {
	raw, ok := r.Cells[key]
	if !ok {
		return Missing()
	}
	return ParseValue(raw)
}
