package classify

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edmap/internal/model"
)

// Options configures scale construction. The cluster count is the palette
// length.
type Options struct {
	Clusterer Clusterer
	Palette   []Color
	NoData    Color
}

// DefaultOptions uses CKMeans with the five-class palette.
func DefaultOptions() Options {
	return Options{
		Clusterer: CKMeans{},
		Palette:   DefaultPalette,
		NoData:    NoDataColor,
	}
}

func (o Options) withDefaults() Options {
	if o.Clusterer == nil {
		o.Clusterer = CKMeans{}
	}
	if len(o.Palette) == 0 {
		o.Palette = DefaultPalette
	}
	if o.NoData == "" {
		o.NoData = NoDataColor
	}
	return o
}

// Values extracts the finite values of attribute across rows, skipping
// missing and non-numeric cells.
func Values(rows []model.RegionRecord, attribute string) []float64 {
	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		v := r.Value(attribute)
		if !v.Valid || math.IsInf(v.Number, 0) {
			continue
		}
		vals = append(vals, v.Number)
	}
	return vals
}

// BuildColorScale classifies attribute over rows into len(Palette) natural
// breaks classes. Each cluster's minimum becomes a threshold, except the
// first cluster's, which is the global minimum and is dropped.
func BuildColorScale(rows []model.RegionRecord, attribute string, opts Options) (*ColorScale, error) {
	opts = opts.withDefaults()
	k := len(opts.Palette)
	if k < 2 {
		return nil, eris.Errorf("classify: palette needs at least 2 colors, got %d", k)
	}

	vals := Values(rows, attribute)
	groups, err := opts.Clusterer.Partition(vals, k)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: partition %s", attribute)
	}
	if len(groups) != k {
		return nil, eris.Errorf("classify: clusterer returned %d groups, want %d", len(groups), k)
	}

	thresholds := make([]float64, 0, k-1)
	for _, g := range groups[1:] {
		if len(g) == 0 {
			return nil, eris.Wrapf(ErrInsufficientData, "classify: empty cluster for %s", attribute)
		}
		thresholds = append(thresholds, minOf(g))
	}
	for i := 1; i < len(thresholds); i++ {
		if !(thresholds[i] > thresholds[i-1]) {
			return nil, eris.Wrapf(ErrInsufficientData, "classify: degenerate breaks for %s", attribute)
		}
	}

	palette := make([]Color, k)
	copy(palette, opts.Palette)
	return &ColorScale{
		Attribute:  attribute,
		Thresholds: thresholds,
		Palette:    palette,
		NoData:     opts.NoData,
	}, nil
}

func minOf(g []float64) float64 {
	m := g[0]
	for _, v := range g[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
