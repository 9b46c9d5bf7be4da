package model

import (
	"encoding/json"

	"github.com/twpayne/go-geom"
)

// Properties is the attribute bag attached to a region after the join.
// Numeric attributes live in Values; year fields are kept verbatim in Years.
type Properties struct {
	Code   string
	Name   string
	Values map[string]Value
	Years  map[string]string
}

// Value returns the parsed attribute, or Missing when the bag has none.
func (p Properties) Value(key string) Value {
	if p.Values == nil {
		return Missing()
	}
	v, ok := p.Values[key]
	if !ok {
		return Missing()
	}
	return v
}

// Year returns a verbatim year-field string.
func (p Properties) Year(key string) (string, bool) {
	if p.Years == nil {
		return "", false
	}
	y, ok := p.Years[key]
	return y, ok
}

// Empty reports whether the bag holds no attribute values.
func (p Properties) Empty() bool {
	return len(p.Values) == 0 && len(p.Years) == 0
}

// Flatten returns the bag as a single map suitable for GeoJSON properties.
func (p Properties) Flatten() map[string]any {
	out := make(map[string]any, len(p.Values)+len(p.Years)+2)
	out["code"] = p.Code
	out["name"] = p.Name
	for k, v := range p.Values {
		if v.Valid {
			out[k] = v.Number
		} else {
			out[k] = nil
		}
	}
	for k, y := range p.Years {
		out[k] = y
	}
	return out
}

// MarshalJSON encodes the flattened bag.
func (p Properties) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Flatten())
}

// GeoFeature is one region boundary with its joined attributes.
type GeoFeature struct {
	Code       string
	Name       string
	Geometry   geom.T
	Properties Properties
	// Joined is false when no tabular row matched Code.
	Joined bool
}
