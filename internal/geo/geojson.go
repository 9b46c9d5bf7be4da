package geo

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/edmap/internal/model"
)

// DecodeGeoJSON reads a FeatureCollection.
func DecodeGeoJSON(data []byte, opts Options) ([]model.GeoFeature, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "geojson: decode feature collection")
	}
	features := make([]model.GeoFeature, 0, len(fc.Features))
	for _, f := range fc.Features {
		code := propString(f.Properties[opts.CodeProperty])
		if code == "" {
			code = f.ID
		}
		features = append(features, model.GeoFeature{
			Code:     code,
			Name:     propString(f.Properties[opts.NameProperty]),
			Geometry: f.Geometry,
		})
	}
	return features, nil
}

// EncodeGeoJSON writes features as a FeatureCollection. extra adds
// per-feature properties, such as the fill color, on top of the joined
// attribute bag.
func EncodeGeoJSON(features []model.GeoFeature, extra func(model.GeoFeature) map[string]any) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(features))}
	for _, f := range features {
		props := f.Properties.Flatten()
		props["code"] = f.Code
		props["name"] = f.Name
		props["joined"] = f.Joined
		if extra != nil {
			for k, v := range extra(f) {
				props[k] = v
			}
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         f.Code,
			Geometry:   f.Geometry,
			Properties: props,
		})
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "geojson: encode feature collection")
	}
	return data, nil
}
