package classify

import (
	"math"
	"sort"

	"github.com/sells-group/edmap/internal/model"
)

// Color is a CSS color string.
type Color string

// NoDataColor is the neutral fill for regions without a usable value.
const NoDataColor Color = "#CCC"

// DefaultPalette is the five-class light-to-dark blue ramp.
var DefaultPalette = []Color{
	"#A0D2E7",
	"#81B1D5",
	"#5C7EC3",
	"#26408B",
	"#0F084B",
}

// ColorScale is a threshold scale: len(Thresholds) == len(Palette)-1 and
// the thresholds are strictly ascending.
type ColorScale struct {
	Attribute  string    `json:"attribute"`
	Thresholds []float64 `json:"thresholds"`
	Palette    []Color   `json:"palette"`
	NoData     Color     `json:"no_data"`
}

// Class returns the palette index for v, or -1 when v is NaN or infinite.
// A value equal to a threshold belongs to the class above it.
func (s *ColorScale) Class(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return -1
	}
	return sort.Search(len(s.Thresholds), func(i int) bool { return s.Thresholds[i] > v })
}

// Color maps v to its class color, or the neutral color for NaN.
func (s *ColorScale) Color(v float64) Color {
	c := s.Class(v)
	if c < 0 || c >= len(s.Palette) {
		return s.Neutral()
	}
	return s.Palette[c]
}

// ColorValue maps a parsed cell, treating missing values as no data.
func (s *ColorScale) ColorValue(v model.Value) Color {
	if !v.Valid {
		return s.Neutral()
	}
	return s.Color(v.Number)
}

// Neutral returns the fill for regions without a usable value.
func (s *ColorScale) Neutral() Color {
	if s == nil || s.NoData == "" {
		return NoDataColor
	}
	return s.NoData
}

// Equal reports whether two scales classify identically.
func (s *ColorScale) Equal(o *ColorScale) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Attribute != o.Attribute || s.NoData != o.NoData ||
		len(s.Thresholds) != len(o.Thresholds) || len(s.Palette) != len(o.Palette) {
		return false
	}
	for i := range s.Thresholds {
		if s.Thresholds[i] != o.Thresholds[i] {
			return false
		}
	}
	for i := range s.Palette {
		if s.Palette[i] != o.Palette[i] {
			return false
		}
	}
	return true
}

// ColorFor returns the fill for a region's expressed attribute. Missing
// values and a nil scale yield the neutral color.
func ColorFor(props model.Properties, scale *ColorScale, expressed string) Color {
	if scale == nil {
		return NoDataColor
	}
	return scale.ColorValue(props.Value(expressed))
}
