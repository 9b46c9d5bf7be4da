package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEducation_Order(t *testing.T) {
	c := Education()
	assert.Equal(t, []string{
		"GRAD_RATE_2018_2019",
		"STUDENTS_REL_COUNT_2020_2021",
		"SALARY_2020_2021",
		"EXPENDITURES_2019_2020",
		"UNDERQUALIFIED",
	}, c.Keys())
	assert.Equal(t, "GRAD_RATE_2018_2019", c.First().Key)
	assert.Equal(t, 5, c.Len())
}

func TestAllKeys_IncludesYearFields(t *testing.T) {
	c := Education()
	all := c.AllKeys()
	require.Len(t, all, 6)
	assert.Equal(t, "UNDERQUALIFIED_YEAR", all[5])
	assert.True(t, c.IsYearField("UNDERQUALIFIED_YEAR"))
	assert.False(t, c.IsYearField("UNDERQUALIFIED"))
}

func TestLookup(t *testing.T) {
	c := Education()
	a, ok := c.Lookup("SALARY_2020_2021")
	require.True(t, ok)
	assert.Equal(t, FormatCurrency, a.Format)

	_, ok = c.Lookup("UNDERQUALIFIED_YEAR")
	assert.False(t, ok, "year fields are not selectable")
}

func TestYearRange(t *testing.T) {
	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{key: "GRAD_RATE_2018_2019", want: "2018-2019", ok: true},
		{key: "SALARY_2020_2021", want: "2020-2021", ok: true},
		{key: "UNDERQUALIFIED", ok: false},
		{key: "RATE_2019", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := Attribute{Key: tt.key}.YearRange()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name  string
		attrs []Attribute
		msg   string
	}{
		{name: "empty", attrs: nil, msg: "no attributes"},
		{name: "missing key", attrs: []Attribute{{Label: "x"}}, msg: "has no key"},
		{name: "duplicate", attrs: []Attribute{{Key: "A"}, {Key: "A"}}, msg: "duplicate attribute key"},
		{name: "bad format", attrs: []Attribute{{Key: "A", Format: "weird"}}, msg: "unknown format"},
		{name: "year clash", attrs: []Attribute{{Key: "A", YearField: "B"}, {Key: "B"}}, msg: "collides"},
		{name: "shared year", attrs: []Attribute{{Key: "A", YearField: "Y"}, {Key: "B", YearField: "Y"}}, msg: "shared by"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.attrs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New([]Attribute{{Key: "A"}})
	require.NoError(t, err)
	a, _ := c.Lookup("A")
	assert.Equal(t, "A", a.Label)
	assert.Equal(t, FormatNumber, a.Format)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	doc := `
attributes:
  - key: GRAD_RATE_2018_2019
    label: Graduation
    format: percent
  - key: UNDERQUALIFIED
    label: Underqualified
    year_field: UNDERQUALIFIED_YEAR
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"GRAD_RATE_2018_2019", "UNDERQUALIFIED", "UNDERQUALIFIED_YEAR"}, c.AllKeys())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	c, err := Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, "GRAD_RATE_2018_2019", c.First().Key)

	c, err = Resolve("", LabelSetLong)
	require.NoError(t, err)
	assert.Equal(t, "SALARY_2020_2021", c.First().Key)

	_, err = Resolve("", "fancy")
	assert.Error(t, err)
}
