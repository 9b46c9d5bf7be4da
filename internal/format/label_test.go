package format

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/model"
)

func texas() model.Properties {
	return model.Properties{
		Code: "TX",
		Name: "Texas",
		Values: map[string]model.Value{
			"SALARY_2020_2021":             model.ParseValue("52345.00"),
			"GRAD_RATE_2018_2019":          model.Num(90.1),
			"STUDENTS_REL_COUNT_2020_2021": model.Num(15.2),
			"UNDERQUALIFIED":               model.Num(12),
			"EXPENDITURES_2019_2020":       model.Missing(),
		},
		Years: map[string]string{"UNDERQUALIFIED_YEAR": "2019"},
	}
}

func TestBuild(t *testing.T) {
	cat := catalog.Education()
	tests := []struct {
		name      string
		attribute string
		value     string
		attr      string
		year      string
		missing   bool
	}{
		{
			name:      "currency drops trailing zeros",
			attribute: "SALARY_2020_2021",
			value:     "$52345",
			attr:      "Average Teacher Salary (2020-2021)",
			year:      "2020-2021",
		},
		{
			name:      "percent",
			attribute: "GRAD_RATE_2018_2019",
			value:     "90.1%",
			attr:      "High School Graduation Rates (2018-2019)",
			year:      "2018-2019",
		},
		{
			name:      "plain number",
			attribute: "STUDENTS_REL_COUNT_2020_2021",
			value:     "15.2",
			attr:      "Students Enrolled Per Teacher (2020-2021)",
			year:      "2020-2021",
		},
		{
			name:      "year from per-region field",
			attribute: "UNDERQUALIFIED",
			value:     "12",
			attr:      "Underqualified Hires Per 10,000 Students (2019)",
			year:      "2019",
		},
		{
			name:      "missing value",
			attribute: "EXPENDITURES_2019_2020",
			value:     "No data",
			attr:      "Expenditures per Student (2019-2020)",
			year:      "2019-2020",
			missing:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Build(cat, tt.attribute, texas())
			assert.Equal(t, "TX_label", l.ID)
			assert.Equal(t, "Texas", l.Region)
			assert.Equal(t, tt.value, l.Value)
			assert.Equal(t, tt.attr, l.Attribute)
			assert.Equal(t, tt.year, l.Year)
			assert.Equal(t, tt.missing, l.Missing)
		})
	}
}

func TestBuild_NoYearRange(t *testing.T) {
	cat := catalog.Must([]catalog.Attribute{{Key: "POP", Label: "Population"}})
	props := model.Properties{Code: "NY", Name: "New York", Values: map[string]model.Value{"POP": model.Num(19.5)}}

	l := Build(cat, "POP", props)
	assert.Equal(t, "Population", l.Attribute)
	assert.Empty(t, l.Year)
	assert.Equal(t, "New York: 19.5 Population", l.String())
}

func TestBuild_MissingYearField(t *testing.T) {
	props := texas()
	props.Years = nil
	l := Build(catalog.Education(), "UNDERQUALIFIED", props)
	assert.Equal(t, "Underqualified Hires Per 10,000 Students", l.Attribute)
}

func TestBuild_UnjoinedRegion(t *testing.T) {
	l := Build(catalog.Education(), "SALARY_2020_2021", model.Properties{Code: "PR", Name: "Puerto Rico"})
	assert.Equal(t, NoData, l.Value)
	assert.True(t, l.Missing)
	assert.Equal(t, "PR_label", l.ID)
}

func TestLabel_HTML(t *testing.T) {
	l := Label{Region: "A&M", Value: "$5", Attribute: "Salary"}
	assert.Equal(t,
		`<h1>$5</h1><b>Salary</b><div class="labelname"><span style="color: #ffa142"><b>A&amp;M</b></span></div>`,
		l.HTML())
}

func TestValue(t *testing.T) {
	assert.Equal(t, "$52345", Value(catalog.FormatCurrency, model.ParseValue("52345.00")))
	assert.Equal(t, "87%", Value(catalog.FormatPercent, model.Num(87)))
	assert.Equal(t, "0.5", Value(catalog.FormatNumber, model.Num(0.5)))
	assert.Equal(t, NoData, Value(catalog.FormatCurrency, model.Missing()))
}

func TestPosition(t *testing.T) {
	tests := []struct {
		name    string
		pointer Point
		want    Point
	}{
		{"default right and above", Point{X: 100, Y: 200}, Point{X: 110, Y: 125}},
		{"flips left near right edge", Point{X: 900, Y: 200}, Point{X: 740, Y: 125}},
		{"drops below near top", Point{X: 100, Y: 50}, Point{X: 110, Y: 75}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Position(tt.pointer, 150, 1000))
		})
	}
}
