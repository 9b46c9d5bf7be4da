package catalog

import "github.com/rotisserie/eris"

// Label sets shipped with the binary.
const (
	LabelSetDefault = "default"
	LabelSetLong    = "long"
)

// Education returns the state education statistics catalog.
func Education() *Catalog {
	return Must([]Attribute{
		{Key: "GRAD_RATE_2018_2019", Label: "High School Graduation Rates", Format: FormatPercent},
		{Key: "STUDENTS_REL_COUNT_2020_2021", Label: "Students Enrolled Per Teacher", Format: FormatNumber},
		{Key: "SALARY_2020_2021", Label: "Average Teacher Salary", Format: FormatCurrency},
		{Key: "EXPENDITURES_2019_2020", Label: "Expenditures per Student", Format: FormatCurrency},
		{
			Key:       "UNDERQUALIFIED",
			Label:     "Underqualified Hires Per 10,000 Students",
			Format:    FormatNumber,
			YearField: "UNDERQUALIFIED_YEAR",
			YearLabel: "Underqualification Data Year",
		},
	})
}

// EducationLong is the same catalog with longer labels that carry the
// school year, ordered with salary first.
func EducationLong() *Catalog {
	return Must([]Attribute{
		{Key: "SALARY_2020_2021", Label: "Average Teacher Salary (2020-2021)", Format: FormatCurrency},
		{Key: "GRAD_RATE_2018_2019", Label: "Graduation Rates (2018-2019)", Format: FormatPercent},
		{Key: "STUDENTS_REL_COUNT_2020_2021", Label: "# of Students Relative to Teachers (2020-2021)", Format: FormatNumber},
		{
			Key:       "UNDERQUALIFIED",
			Label:     "# of Underqualified Teachers per 100,000 Students",
			Format:    FormatNumber,
			YearField: "UNDERQUALIFIED_YEAR",
			YearLabel: "Underqualification Data Year",
		},
		{Key: "EXPENDITURES_2019_2020", Label: "Expenditures per Student (2019-2020)", Format: FormatCurrency},
	})
}

// Resolve returns the catalog from path when set, otherwise the named
// built-in label set.
func Resolve(path, labelSet string) (*Catalog, error) {
	if path != "" {
		return Load(path)
	}
	switch labelSet {
	case "", LabelSetDefault:
		return Education(), nil
	case LabelSetLong:
		return EducationLong(), nil
	default:
		return nil, eris.Errorf("catalog: unknown label set %q", labelSet)
	}
}
