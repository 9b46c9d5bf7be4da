package geo

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/edmap/internal/model"
)

type topology struct {
	Type      string                `json:"type"`
	Transform *topoTransform        `json:"transform"`
	Arcs      [][][]float64         `json:"arcs"`
	Objects   map[string]topoObject `json:"objects"`
}

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoObject struct {
	Type       string          `json:"type"`
	ID         any             `json:"id"`
	Properties map[string]any  `json:"properties"`
	Arcs       json.RawMessage `json:"arcs"`
	Geometries []topoObject    `json:"geometries"`
}

// DecodeTopoJSON converts the named object of a topology into features.
// Quantized arcs are delta-decoded and stitched into closed rings.
func DecodeTopoJSON(data []byte, opts Options) ([]model.GeoFeature, error) {
	var topo topology
	if err := json.Unmarshal(data, &topo); err != nil {
		return nil, eris.Wrap(err, "topojson: decode")
	}
	if topo.Type != "Topology" {
		return nil, eris.Errorf("topojson: expected Topology, got %q", topo.Type)
	}
	obj, ok := topo.Objects[opts.Object]
	if !ok {
		return nil, eris.Errorf("topojson: object %q not found", opts.Object)
	}

	arcs := decodeArcs(topo.Arcs, topo.Transform)
	geoms := []topoObject{obj}
	if obj.Type == "GeometryCollection" {
		geoms = obj.Geometries
	}

	features := make([]model.GeoFeature, 0, len(geoms))
	for i, g := range geoms {
		shape, err := g.geometry(arcs)
		if err != nil {
			return nil, eris.Wrapf(err, "topojson: geometry %d", i)
		}
		code := propString(g.Properties[opts.CodeProperty])
		if code == "" {
			code = propString(g.ID)
		}
		features = append(features, model.GeoFeature{
			Code:     code,
			Name:     propString(g.Properties[opts.NameProperty]),
			Geometry: shape,
		})
	}
	return features, nil
}

// decodeArcs applies the quantization transform, turning delta-encoded
// integer positions into absolute coordinates.
func decodeArcs(raw [][][]float64, tr *topoTransform) [][]float64 {
	out := make([][]float64, len(raw))
	for i, arc := range raw {
		flat := make([]float64, 0, len(arc)*2)
		var x, y float64
		for _, p := range arc {
			if len(p) < 2 {
				continue
			}
			if tr == nil {
				flat = append(flat, p[0], p[1])
				continue
			}
			x += p[0]
			y += p[1]
			flat = append(flat, x*tr.Scale[0]+tr.Translate[0], y*tr.Scale[1]+tr.Translate[1])
		}
		out[i] = flat
	}
	return out
}

// ring stitches arc references into one flat XY ring. A negative index ~i
// walks arc i backwards. Each arc after the first starts where the previous
// one ended, so its first point is dropped.
func ring(refs []int, arcs [][]float64) ([]float64, error) {
	var flat []float64
	for n, ref := range refs {
		idx, reverse := ref, false
		if ref < 0 {
			idx, reverse = ^ref, true
		}
		if idx >= len(arcs) {
			return nil, eris.Errorf("arc index %d out of range", idx)
		}
		pts := arcs[idx]
		if reverse {
			pts = reversePoints(pts)
		}
		if n > 0 && len(pts) >= 2 {
			pts = pts[2:]
		}
		flat = append(flat, pts...)
	}
	if len(flat) < 8 {
		return nil, eris.Errorf("ring has %d points, need 4", len(flat)/2)
	}
	return flat, nil
}

func reversePoints(flat []float64) []float64 {
	out := make([]float64, len(flat))
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := n - 1 - i
		out[2*i], out[2*i+1] = flat[2*j], flat[2*j+1]
	}
	return out
}

func polygonRings(refs [][]int, arcs [][]float64) ([]float64, []int, error) {
	var flat []float64
	var ends []int
	for _, r := range refs {
		pts, err := ring(r, arcs)
		if err != nil {
			return nil, nil, err
		}
		flat = append(flat, pts...)
		ends = append(ends, len(flat))
	}
	return flat, ends, nil
}

func (o topoObject) geometry(arcs [][]float64) (geom.T, error) {
	switch o.Type {
	case "", "null":
		return nil, nil
	case "Polygon":
		var refs [][]int
		if err := json.Unmarshal(o.Arcs, &refs); err != nil {
			return nil, eris.Wrap(err, "polygon arcs")
		}
		flat, ends, err := polygonRings(refs, arcs)
		if err != nil {
			return nil, err
		}
		return geom.NewPolygonFlat(geom.XY, flat, ends).SetSRID(4326), nil
	case "MultiPolygon":
		var refs [][][]int
		if err := json.Unmarshal(o.Arcs, &refs); err != nil {
			return nil, eris.Wrap(err, "multipolygon arcs")
		}
		var flat []float64
		var endss [][]int
		for _, poly := range refs {
			pf, ends, err := polygonRings(poly, arcs)
			if err != nil {
				return nil, err
			}
			offset := len(flat)
			for i := range ends {
				ends[i] += offset
			}
			flat = append(flat, pf...)
			endss = append(endss, ends)
		}
		return geom.NewMultiPolygonFlat(geom.XY, flat, endss).SetSRID(4326), nil
	}
	return nil, eris.Errorf("unsupported geometry type %q", o.Type)
}
