package dataset

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/model"
)

// ValidateRows checks region codes and year fields. All problems are
// collected into a single ErrValidation.
func ValidateRows(cat *catalog.Catalog, rows []model.RegionRecord) error {
	var problems []string
	seen := make(map[string]bool, len(rows))
	for i, r := range rows {
		if r.Code == "" {
			problems = append(problems, fmt.Sprintf("row %d has an empty code", i+1))
			continue
		}
		if seen[r.Code] {
			problems = append(problems, "duplicate code "+r.Code)
		}
		seen[r.Code] = true

		for _, a := range cat.Attributes() {
			if a.YearField == "" || !r.Value(a.Key).Valid {
				continue
			}
			if y, _ := r.Cell(a.YearField); strings.TrimSpace(y) == "" {
				problems = append(problems, r.Code+": "+a.Key+" has a value but "+a.YearField+" is empty")
			}
		}
	}
	return problemsError("rows", problems)
}

// ValidateFeatures requires every feature to carry a unique code.
func ValidateFeatures(features []model.GeoFeature) error {
	var problems []string
	seen := make(map[string]bool, len(features))
	for i, f := range features {
		if f.Code == "" {
			problems = append(problems, fmt.Sprintf("feature %d has an empty code", i))
			continue
		}
		if seen[f.Code] {
			problems = append(problems, "duplicate feature code "+f.Code)
		}
		seen[f.Code] = true
	}
	return problemsError("features", problems)
}

func problemsError(what string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return eris.Wrapf(ErrValidation, "dataset: %d invalid %s: %s", len(problems), what, strings.Join(problems, "; "))
}
