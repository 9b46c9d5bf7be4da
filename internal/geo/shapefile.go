package geo

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/edmap/internal/fetcher"
	"github.com/sells-group/edmap/internal/model"
)

// ReadShapefile reads polygon records and their code and name attributes.
func ReadShapefile(path string, opts Options) ([]model.GeoFeature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	codeIdx, nameIdx := -1, -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		switch {
		case strings.EqualFold(name, opts.CodeProperty):
			codeIdx = i
		case strings.EqualFold(name, opts.NameProperty):
			nameIdx = i
		}
	}
	if codeIdx < 0 {
		return nil, eris.Errorf("shapefile: code field %q not found", opts.CodeProperty)
	}

	var features []model.GeoFeature
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		f := model.GeoFeature{
			Code:     attribute(reader, codeIdx),
			Geometry: polygonToMultiPolygon(poly),
		}
		if nameIdx >= 0 {
			f.Name = attribute(reader, nameIdx)
		}
		features = append(features, f)
	}
	if skipped > 0 {
		zap.L().Debug("shapefile: skipped non-polygon records", zap.Int("skipped", skipped))
	}
	return features, nil
}

// ReadShapefileZIP extracts a zipped shapefile to a temporary directory and
// reads the first .shp inside.
func ReadShapefileZIP(data []byte, opts Options) ([]model.GeoFeature, error) {
	dir, err := os.MkdirTemp("", "edmap-shp-*")
	if err != nil {
		return nil, eris.Wrap(err, "shapefile: create temp dir")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	paths, err := fetcher.ExtractZIP(data, dir)
	if err != nil {
		return nil, eris.Wrap(err, "shapefile: extract")
	}
	shpPath, ok := fetcher.FindExt(paths, ".shp")
	if !ok {
		return nil, eris.New("shapefile: archive has no .shp")
	}
	return ReadShapefile(shpPath, opts)
}

func attribute(r *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(r.Attribute(idx), "\x00"))
}

// polygonToMultiPolygon groups shapefile rings into polygons. Clockwise
// rings start a new polygon; counter-clockwise rings are holes of the
// polygon before them.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return mp
	}

	var current *geom.Polygon
	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if signedArea(flat) > 0 && current != nil {
			if err := current.Push(ring); err != nil {
				zap.L().Debug("shapefile: skipping malformed hole", zap.Int32("part", i), zap.Error(err))
			}
			continue
		}
		flush()
		current = geom.NewPolygon(geom.XY)
		if err := current.Push(ring); err != nil {
			zap.L().Debug("shapefile: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			current = nil
		}
	}
	flush()
	return mp
}

// signedArea is positive for counter-clockwise rings.
func signedArea(flat []float64) float64 {
	var a float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return a / 2
}
