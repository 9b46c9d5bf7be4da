package view

import (
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/sells-group/edmap/internal/classify"
)

// RenderChartSVG draws the chart view as an SVG bar chart.
func RenderChartSVG(w io.Writer, cv ChartView) error {
	if len(cv.Bars) == 0 {
		return eris.New("view: chart has no bars")
	}

	bars := make([]chart.Value, len(cv.Bars))
	for i, b := range cv.Bars {
		fill, err := ParseColor(b.Fill)
		if err != nil {
			return eris.Wrapf(err, "view: bar %s", b.Code)
		}
		v := 0.0
		if b.Value.Valid {
			v = b.Value.Number
		}
		bars[i] = chart.Value{
			Value: v,
			Label: b.Code,
			Style: chart.Style{
				FillColor:   fill,
				StrokeColor: fill,
				StrokeWidth: 0,
			},
		}
	}

	barWidth := int(cv.Bars[0].Width)
	if barWidth < 1 {
		barWidth = 1
	}
	bc := chart.BarChart{
		Title:      cv.Title.Text,
		Width:      int(cv.Layout.Width),
		Height:     int(cv.Layout.Height),
		BarWidth:   barWidth,
		BarSpacing: 1,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    int(cv.Layout.PaddingTop) + titleY,
				Left:   int(cv.Layout.PaddingLeft),
				Right:  int(cv.Layout.PaddingRight),
				Bottom: int(cv.Layout.PaddingBottom),
			},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: cv.Axis.Min, Max: cv.Axis.Max},
			Ticks: axisTicks(cv.Axis),
		},
		Bars: bars,
	}
	if err := bc.Render(chart.SVG, w); err != nil {
		return eris.Wrap(err, "view: render chart")
	}
	return nil
}

func axisTicks(a Axis) []chart.Tick {
	if len(a.Ticks) == 0 {
		return nil
	}
	out := make([]chart.Tick, len(a.Ticks))
	for i, t := range a.Ticks {
		out[i] = chart.Tick{Value: t.Value, Label: t.Label}
	}
	return out
}

// ParseColor converts "#RGB" or "#RRGGBB" into an opaque drawing color.
func ParseColor(c classify.Color) (drawing.Color, error) {
	hex := strings.TrimPrefix(string(c), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return drawing.Color{}, eris.Errorf("view: invalid color %q", c)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return drawing.Color{}, eris.Wrapf(err, "view: invalid color %q", c)
	}
	return drawing.Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
}
