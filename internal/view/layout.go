// Package view binds a joined dataset and a color scale into the map,
// chart, and control models clients render.
package view

// Layout is the bar chart frame in pixels.
type Layout struct {
	Width         float64 `json:"width" mapstructure:"width"`
	Height        float64 `json:"height" mapstructure:"height"`
	PaddingLeft   float64 `json:"padding_left" mapstructure:"padding_left"`
	PaddingRight  float64 `json:"padding_right" mapstructure:"padding_right"`
	PaddingTop    float64 `json:"padding_top" mapstructure:"padding_top"`
	PaddingBottom float64 `json:"padding_bottom" mapstructure:"padding_bottom"`
}

// DefaultLayout returns the stock chart frame.
func DefaultLayout() Layout {
	return Layout{
		Width:         800,
		Height:        563,
		PaddingLeft:   40,
		PaddingRight:  2,
		PaddingTop:    5,
		PaddingBottom: 5,
	}
}

// InnerWidth is the plotting width inside the paddings.
func (l Layout) InnerWidth() float64 { return l.Width - l.PaddingLeft - l.PaddingRight }

// InnerHeight is the plotting height inside the paddings.
func (l Layout) InnerHeight() float64 { return l.Height - l.PaddingTop - l.PaddingBottom }

// Style is a stroke applied to a map region or chart bar.
type Style struct {
	Stroke      string `json:"stroke"`
	StrokeWidth string `json:"stroke_width"`
}

// Stroke styles. Dehighlighting restores the element's base style.
var (
	MapStyle       = Style{Stroke: "#000", StrokeWidth: "0.5px"}
	BarStyle       = Style{Stroke: "none", StrokeWidth: "0px"}
	HighlightStyle = Style{Stroke: "#ffa142", StrokeWidth: "3"}
)
