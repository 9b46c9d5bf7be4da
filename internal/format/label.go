// Package format renders region tooltips for the expressed attribute.
package format

import (
	"html"
	"strconv"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/model"
)

// NoData is the value text shown for missing values.
const NoData = "No data"

// HighlightColor tints the region name in rendered labels.
const HighlightColor = "#ffa142"

// Label is the hover tooltip for one region.
type Label struct {
	// ID is the region code suffixed with "_label".
	ID     string `json:"id"`
	Code   string `json:"code"`
	Region string `json:"region"`
	// Value is the formatted value, e.g. "$52345", "87%" or "No data".
	Value string `json:"value"`
	// Attribute is the attribute label followed by the year suffix.
	Attribute string `json:"attribute"`
	Year      string `json:"year,omitempty"`
	Missing   bool   `json:"missing"`
}

// String renders a plain-text form: "Texas: $52345 Average Teacher Salary (2020-2021)".
func (l Label) String() string {
	return l.Region + ": " + l.Value + " " + l.Attribute
}

// HTML renders the tooltip markup with the value as a heading and the
// region name in the highlight color.
func (l Label) HTML() string {
	return "<h1>" + html.EscapeString(l.Value) + "</h1><b>" + html.EscapeString(l.Attribute) + "</b>" +
		`<div class="labelname"><span style="color: ` + HighlightColor + `"><b>` +
		html.EscapeString(l.Region) + "</b></span></div>"
}

// Build builds the tooltip for props under attribute. Unknown attributes
// fall back to the key as the label with number formatting.
func Build(cat *catalog.Catalog, attribute string, props model.Properties) Label {
	attr, ok := cat.Lookup(attribute)
	if !ok {
		attr = catalog.Attribute{Key: attribute, Label: attribute, Format: catalog.FormatNumber}
	}

	v := props.Value(attribute)
	year := Year(attr, props)
	suffix := ""
	if year != "" {
		suffix = " (" + year + ")"
	}
	return Label{
		ID:        props.Code + "_label",
		Code:      props.Code,
		Region:    props.Name,
		Value:     Value(attr.Format, v),
		Attribute: attr.Label + suffix,
		Year:      year,
		Missing:   !v.Valid,
	}
}

// Value formats v under f. Numbers use the shortest decimal form so
// "52345.00" renders as 52345.
func Value(f catalog.Format, v model.Value) string {
	if !v.Valid {
		return NoData
	}
	s := strconv.FormatFloat(v.Number, 'f', -1, 64)
	switch f {
	case catalog.FormatCurrency:
		return "$" + s
	case catalog.FormatPercent:
		return s + "%"
	default:
		return s
	}
}

// Year returns the reporting year for the attribute: the region's year
// field when the attribute has one, otherwise the range embedded in the key.
func Year(attr catalog.Attribute, props model.Properties) string {
	if attr.YearField != "" {
		y, _ := props.Year(attr.YearField)
		return y
	}
	r, _ := attr.YearRange()
	return r
}
