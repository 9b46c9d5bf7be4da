package view

import (
	"math"
	"sort"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/classify"
	"github.com/sells-group/edmap/internal/format"
	"github.com/sells-group/edmap/internal/join"
	"github.com/sells-group/edmap/internal/model"
)

// Input is the joined data a view is computed from.
type Input struct {
	Catalog  *catalog.Catalog
	Features []model.GeoFeature
	Rows     []model.RegionRecord
}

// Region is one map feature's render state.
type Region struct {
	Code   string         `json:"code"`
	Name   string         `json:"name"`
	Fill   classify.Color `json:"fill"`
	Style  Style          `json:"style"`
	Label  format.Label   `json:"label"`
	Joined bool           `json:"joined"`
}

// MapView is the choropleth render state in feature order.
type MapView struct {
	Regions []Region `json:"regions"`
}

// Bar is one chart bar positioned within the chart frame.
type Bar struct {
	Code   string         `json:"code"`
	Name   string         `json:"name"`
	Value  model.Value    `json:"value"`
	Fill   classify.Color `json:"fill"`
	Style  Style          `json:"style"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
	Label  format.Label   `json:"label"`
}

// Axis is the linear value axis.
type Axis struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Ticks []Tick  `json:"ticks"`
}

// Title is the chart heading, centered over the plotting area.
type Title struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// ChartView is the coordinated bar chart.
type ChartView struct {
	Title  Title  `json:"title"`
	Layout Layout `json:"layout"`
	Axis   Axis   `json:"axis"`
	Bars   []Bar  `json:"bars"`
}

// View is the complete render state for one expressed attribute.
type View struct {
	Revision  uint64               `json:"revision"`
	Attribute catalog.Attribute    `json:"attribute"`
	Scale     *classify.ColorScale `json:"scale"`
	Map       MapView              `json:"map"`
	Chart     ChartView            `json:"chart"`
}

const titleY = 40

// Build computes the map and chart for attribute. Every region and bar is
// colored through scale; missing values get the neutral color.
func Build(in Input, scale *classify.ColorScale, attribute string, layout Layout) View {
	attr, ok := in.Catalog.Lookup(attribute)
	if !ok {
		attr = catalog.Attribute{Key: attribute, Label: attribute, Format: catalog.FormatNumber}
	}
	return View{
		Attribute: attr,
		Scale:     scale,
		Map:       buildMap(in, scale, attribute),
		Chart:     buildChart(in, scale, attr, layout),
	}
}

func buildMap(in Input, scale *classify.ColorScale, attribute string) MapView {
	regions := make([]Region, 0, len(in.Features))
	for _, f := range in.Features {
		props := f.Properties
		if props.Code == "" {
			props.Code = f.Code
		}
		if props.Name == "" {
			props.Name = f.Name
		}
		regions = append(regions, Region{
			Code:   f.Code,
			Name:   f.Name,
			Fill:   classify.ColorFor(props, scale, attribute),
			Style:  MapStyle,
			Label:  format.Build(in.Catalog, attribute, props),
			Joined: f.Joined,
		})
	}
	return MapView{Regions: regions}
}

func buildChart(in Input, scale *classify.ColorScale, attr catalog.Attribute, layout Layout) ChartView {
	type entry struct {
		props model.Properties
		value model.Value
	}
	entries := make([]entry, len(in.Rows))
	for i, r := range in.Rows {
		p := join.Properties(in.Catalog, r)
		entries[i] = entry{props: p, value: p.Value(attr.Key)}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return Descending(entries[i].value, entries[j].value)
	})

	domainMax := DomainMax(in.Rows, attr.Key)
	innerW := layout.InnerWidth()
	innerH := layout.InnerHeight()
	yScale := func(v float64) float64 { return innerH - v/domainMax*innerH }

	n := float64(len(entries))
	bars := make([]Bar, len(entries))
	for i, e := range entries {
		b := Bar{
			Code:  e.props.Code,
			Name:  e.props.Name,
			Value: e.value,
			Fill:  classify.ColorFor(e.props, scale, attr.Key),
			Style: BarStyle,
			X:     float64(i)*(innerW/n) + layout.PaddingLeft,
			Width: innerW/n - 1,
			Label: format.Build(in.Catalog, attr.Key, e.props),
		}
		if e.value.Valid {
			y := yScale(e.value.Number)
			b.Y = y + layout.PaddingTop
			b.Height = math.Max(0, innerH-y)
		} else {
			b.Y = innerH + layout.PaddingTop
		}
		bars[i] = b
	}

	values := Ticks(0, domainMax, DefaultTickCount)
	ticks := make([]Tick, len(values))
	for i, v := range values {
		ticks[i] = Tick{Value: v, Label: tickLabel(v), Y: yScale(v) + layout.PaddingTop}
	}

	return ChartView{
		Title: Title{
			Text: attr.Label,
			X:    layout.PaddingLeft + innerW/2,
			Y:    titleY,
		},
		Layout: layout,
		Axis:   Axis{Min: 0, Max: domainMax, Ticks: ticks},
		Bars:   bars,
	}
}

// Descending orders valid values high to low with missing values last.
func Descending(a, b model.Value) bool {
	if !a.Valid {
		return false
	}
	if !b.Valid {
		return true
	}
	return a.Number > b.Number
}

// DomainMax is the upper end of the value axis: the largest value plus
// ten percent, or 1 when there is no positive value.
func DomainMax(rows []model.RegionRecord, attribute string) float64 {
	maxVal := math.Inf(-1)
	for _, v := range classify.Values(rows, attribute) {
		if v > maxVal {
			maxVal = v
		}
	}
	if !(maxVal > 0) {
		return 1
	}
	return maxVal + 0.1*maxVal
}

// Order returns the bar codes in chart order.
func (c ChartView) Order() []string {
	out := make([]string, len(c.Bars))
	for i, b := range c.Bars {
		out[i] = b.Code
	}
	return out
}

// Region returns the map entry for code.
func (m MapView) Region(code string) (Region, bool) {
	for _, r := range m.Regions {
		if r.Code == code {
			return r, true
		}
	}
	return Region{}, false
}
