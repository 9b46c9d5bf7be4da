package dataset

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/model"
)

// ParseRows converts a header row plus data rows into region records. Every
// column other than the code and name columns is kept as a raw cell, so
// attributes outside the catalog survive a snapshot round trip. Blank
// lines are skipped.
func ParseRows(records [][]string, cat *catalog.Catalog, codeColumn, nameColumn string) ([]model.RegionRecord, error) {
	if len(records) == 0 {
		return nil, eris.Wrap(ErrValidation, "dataset: tabular source is empty")
	}
	header := make([]string, len(records[0]))
	codeIdx, nameIdx := -1, -1
	for i, h := range records[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		switch h {
		case codeColumn:
			codeIdx = i
		case nameColumn:
			nameIdx = i
		}
	}
	if codeIdx < 0 {
		return nil, eris.Wrapf(ErrValidation, "dataset: code column %q not found", codeColumn)
	}
	if err := checkColumns(header, cat); err != nil {
		return nil, err
	}

	rows := make([]model.RegionRecord, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		r := model.RegionRecord{Cells: make(map[string]string, len(header))}
		for i, h := range header {
			var cell string
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			switch i {
			case codeIdx:
				r.Code = cell
			case nameIdx:
				r.Name = cell
			default:
				if h != "" {
					r.Cells[h] = cell
				}
			}
		}
		if r.Name == "" {
			r.Name = r.Code
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// checkColumns requires every catalog year field to be present. Missing
// statistic columns only render as "No data".
func checkColumns(header []string, cat *catalog.Catalog) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, a := range cat.Attributes() {
		if a.YearField != "" && !present[a.YearField] {
			missing = append(missing, a.YearField)
		}
	}
	if len(missing) > 0 {
		return eris.Wrapf(ErrValidation, "dataset: year column(s) %s not found", strings.Join(missing, ", "))
	}
	return nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
