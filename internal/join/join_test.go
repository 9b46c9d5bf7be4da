package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/model"
)

func testRows() []model.RegionRecord {
	return []model.RegionRecord{
		{Code: "CA", Name: "California", Cells: map[string]string{
			"GRAD_RATE_2018_2019":          "85.2",
			"STUDENTS_REL_COUNT_2020_2021": "22.9",
			"SALARY_2020_2021":             "84531.00",
			"EXPENDITURES_2019_2020":       "14031",
			"UNDERQUALIFIED":               "26.4",
			"UNDERQUALIFIED_YEAR":          "2019-2020",
		}},
		{Code: "TX", Name: "Texas", Cells: map[string]string{
			"GRAD_RATE_2018_2019":          "90.1",
			"STUDENTS_REL_COUNT_2020_2021": "15.1",
			"SALARY_2020_2021":             "57090.00",
			"EXPENDITURES_2019_2020":       "",
			"UNDERQUALIFIED":               "n/a",
			"UNDERQUALIFIED_YEAR":          "",
		}},
	}
}

func TestJoin_ParsesNumbersAndKeepsYearVerbatim(t *testing.T) {
	cat := catalog.Education()
	rows := testRows()
	features := []model.GeoFeature{{Code: "CA"}, {Code: "TX"}}

	out := Join(cat, features, rows)
	require.Len(t, out, 2)

	for i, f := range out {
		row := rows[i]
		require.True(t, f.Joined)
		assert.Equal(t, row.Name, f.Name)
		for _, key := range cat.AllKeys() {
			if cat.IsYearField(key) {
				y, ok := f.Properties.Year(key)
				require.True(t, ok)
				assert.Equal(t, row.Cells[key], y)
				continue
			}
			_, present := f.Properties.Values[key]
			assert.True(t, present, "attribute %s must be set", key)
			assert.Equal(t, model.ParseValue(row.Cells[key]), f.Properties.Value(key))
		}
	}

	assert.Equal(t, 84531.0, out[0].Properties.Value("SALARY_2020_2021").Number)
	assert.False(t, out[1].Properties.Value("EXPENDITURES_2019_2020").Valid)
	assert.False(t, out[1].Properties.Value("UNDERQUALIFIED").Valid)
}

func TestJoin_UnmatchedFeatureKeepsEmptyBag(t *testing.T) {
	cat := catalog.Education()
	features := []model.GeoFeature{{Code: "PR", Name: "Puerto Rico"}, {Code: "CA"}}

	out := Join(cat, features, testRows())
	assert.False(t, out[0].Joined)
	assert.True(t, out[0].Properties.Empty())
	assert.Equal(t, "PR", out[0].Properties.Code)
	assert.Equal(t, "Puerto Rico", out[0].Properties.Name)
	assert.True(t, out[1].Joined)
}

func TestJoin_DoesNotMutateInput(t *testing.T) {
	cat := catalog.Education()
	features := []model.GeoFeature{{Code: "CA"}}
	_ = Join(cat, features, testRows())
	assert.False(t, features[0].Joined)
	assert.Nil(t, features[0].Properties.Values)
}

func TestJoin_PrefersFeatureName(t *testing.T) {
	cat := catalog.Education()
	out := Join(cat, []model.GeoFeature{{Code: "CA", Name: "Calif."}}, testRows())
	assert.Equal(t, "Calif.", out[0].Name)
	assert.Equal(t, "California", out[0].Properties.Name)
}

func TestReconcile(t *testing.T) {
	features := []model.GeoFeature{{Code: "CA"}, {Code: "PR"}, {Code: "GU"}}
	rows := append(testRows(), model.RegionRecord{Code: "DC"})

	rep := Reconcile(features, rows)
	assert.Equal(t, 1, rep.Matched)
	assert.Equal(t, []string{"GU", "PR"}, rep.GeoOnly)
	assert.Equal(t, []string{"DC", "TX"}, rep.TabularOnly)
	assert.Equal(t, 4, rep.Misses())
}

func TestIndex_FirstRowWins(t *testing.T) {
	idx := Index([]model.RegionRecord{{Code: "CA", Name: "first"}, {Code: "CA", Name: "second"}})
	assert.Equal(t, "first", idx["CA"].Name)
}
