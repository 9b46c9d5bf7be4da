package view

import (
	"github.com/sells-group/edmap/internal/geo"
	"github.com/sells-group/edmap/internal/model"
)

// EncodeGeoJSON renders features as a FeatureCollection whose properties
// carry v's fill, value and label for each region.
func EncodeGeoJSON(features []model.GeoFeature, v View) ([]byte, error) {
	regions := make(map[string]Region, len(v.Map.Regions))
	for _, reg := range v.Map.Regions {
		regions[reg.Code] = reg
	}
	noData := v.Scale.Neutral()
	return geo.EncodeGeoJSON(features, func(f model.GeoFeature) map[string]any {
		reg, ok := regions[f.Code]
		if !ok {
			return map[string]any{"fill": noData}
		}
		return map[string]any{
			"fill":      reg.Fill,
			"attribute": v.Attribute.Key,
			"value":     f.Properties.Value(v.Attribute.Key),
			"label":     reg.Label.String(),
		}
	})
}
