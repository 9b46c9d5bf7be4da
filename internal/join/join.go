// Package join merges tabular region rows into geographic features by region code.
package join

import (
	"sort"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/model"
)

// Properties converts a tabular row into a typed attribute bag. Year fields
// are copied verbatim; every other catalog column is parsed as a number or
// marked missing.
func Properties(cat *catalog.Catalog, row model.RegionRecord) model.Properties {
	keys := cat.AllKeys()
	props := model.Properties{
		Code:   row.Code,
		Name:   row.Name,
		Values: make(map[string]model.Value, len(keys)),
	}
	for _, key := range keys {
		if cat.IsYearField(key) {
			if props.Years == nil {
				props.Years = make(map[string]string)
			}
			raw, _ := row.Cell(key)
			props.Years[key] = raw
			continue
		}
		props.Values[key] = row.Value(key)
	}
	return props
}

// Index builds a code -> row lookup. On duplicate codes the first row wins;
// the dataset loader rejects duplicates before rows get here.
func Index(rows []model.RegionRecord) map[string]model.RegionRecord {
	idx := make(map[string]model.RegionRecord, len(rows))
	for _, r := range rows {
		if _, ok := idx[r.Code]; ok {
			continue
		}
		idx[r.Code] = r
	}
	return idx
}

// Join returns a copy of features with properties populated from the row
// sharing each feature's code. Features without a row keep an empty bag and
// Joined=false. The inputs are not modified.
func Join(cat *catalog.Catalog, features []model.GeoFeature, rows []model.RegionRecord) []model.GeoFeature {
	idx := Index(rows)
	out := make([]model.GeoFeature, len(features))
	for i, f := range features {
		joined := f
		row, ok := idx[f.Code]
		if !ok {
			joined.Properties = model.Properties{Code: f.Code, Name: f.Name}
			joined.Joined = false
			out[i] = joined
			continue
		}
		joined.Properties = Properties(cat, row)
		if joined.Name == "" {
			joined.Name = row.Name
		}
		if joined.Properties.Name == "" {
			joined.Properties.Name = joined.Name
		}
		joined.Joined = true
		out[i] = joined
	}
	return out
}

// Report summarizes how the two datasets lined up.
type Report struct {
	Matched int `json:"matched"`
	// GeoOnly lists feature codes with no tabular row.
	GeoOnly []string `json:"geo_only"`
	// TabularOnly lists row codes with no feature.
	TabularOnly []string `json:"tabular_only"`
}

// Misses returns the total number of unmatched codes on either side.
func (r Report) Misses() int { return len(r.GeoOnly) + len(r.TabularOnly) }

// Reconcile compares the code sets of both datasets.
func Reconcile(features []model.GeoFeature, rows []model.RegionRecord) Report {
	idx := Index(rows)
	seen := make(map[string]bool, len(features))
	var rep Report
	for _, f := range features {
		seen[f.Code] = true
		if _, ok := idx[f.Code]; ok {
			rep.Matched++
			continue
		}
		rep.GeoOnly = append(rep.GeoOnly, f.Code)
	}
	for code := range idx {
		if !seen[code] {
			rep.TabularOnly = append(rep.TabularOnly, code)
		}
	}
	sort.Strings(rep.GeoOnly)
	sort.Strings(rep.TabularOnly)
	return rep
}
