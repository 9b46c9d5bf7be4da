// Package geo decodes region boundaries from TopoJSON, GeoJSON and ESRI
// shapefiles into go-geom features keyed by region code.
package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edmap/internal/model"
)

// Supported boundary formats.
const (
	FormatTopoJSON  = "topojson"
	FormatGeoJSON   = "geojson"
	FormatShapefile = "shapefile"
)

// Options selects the properties that carry the region code and name.
type Options struct {
	// Object is the TopoJSON object holding the regions.
	Object       string
	CodeProperty string
	NameProperty string
}

// DefaultOptions matches the US states topology.
func DefaultOptions() Options {
	return Options{Object: "States", CodeProperty: "STUSPS", NameProperty: "NAME"}
}

// DetectFormat picks a format from the file extension, sniffing JSON
// content when the extension is ambiguous.
func DetectFormat(ext string, data []byte) (string, error) {
	switch ext {
	case ".topojson":
		return FormatTopoJSON, nil
	case ".geojson":
		return FormatGeoJSON, nil
	case ".shp", ".zip":
		return FormatShapefile, nil
	case ".json", "":
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return "", eris.Wrap(err, "geo: sniff json type")
		}
		switch probe.Type {
		case "Topology":
			return FormatTopoJSON, nil
		case "FeatureCollection":
			return FormatGeoJSON, nil
		}
		return "", eris.Errorf("geo: unrecognized json type %q", probe.Type)
	}
	return "", eris.Errorf("geo: unsupported extension %q", ext)
}

// Decode parses in-memory TopoJSON, GeoJSON, or a zipped shapefile.
func Decode(format string, data []byte, opts Options) ([]model.GeoFeature, error) {
	switch format {
	case FormatTopoJSON:
		return DecodeTopoJSON(data, opts)
	case FormatGeoJSON:
		return DecodeGeoJSON(data, opts)
	case FormatShapefile:
		if !bytes.HasPrefix(data, []byte("PK")) {
			return nil, eris.New("geo: shapefiles must be zipped with their .dbf")
		}
		return ReadShapefileZIP(data, opts)
	}
	return nil, eris.Errorf("geo: unknown format %q", format)
}

// propString renders a JSON property value as text. Numbers keep their
// shortest form so numeric FIPS codes survive.
func propString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
