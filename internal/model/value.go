// Package model defines the core data types shared across the choropleth pipeline.
package model

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Value is a parsed numeric attribute cell. Valid is false when the source
// cell was absent, empty, or not numeric.
type Value struct {
	Number float64
	Valid  bool
}

// Num returns a valid Value holding f.
func Num(f float64) Value { return Value{Number: f, Valid: true} }

// Missing returns the "no data" marker.
func Missing() Value { return Value{} }

// Float returns the number, or NaN when the value is missing.
func (v Value) Float() float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Number
}

// String renders the shortest decimal form, or an empty string when missing.
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

// MarshalJSON encodes missing values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Number)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Missing()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Num(f)
	return nil
}

var numericPrefix = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// ParseValue parses the longest numeric prefix of raw after leading
// whitespace, so "52345.00" is 52345 and "12 students" is 12. Empty,
// non-numeric, and non-finite inputs yield Missing.
func ParseValue(raw string) Value {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	m := numericPrefix.FindString(s)
	if m == "" {
		return Missing()
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return Missing()
	}
	return Num(f)
}
