package dataset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/fetcher"
	"github.com/sells-group/edmap/internal/model"
	"github.com/sells-group/edmap/internal/store"
)

const statesCSV = `STUSPS,STATE,GRAD_RATE_2018_2019,STUDENTS_REL_COUNT_2020_2021,SALARY_2020_2021,EXPENDITURES_2019_2020,UNDERQUALIFIED,UNDERQUALIFIED_YEAR
CA,California,84.5,22.7,84531.00,14031,13.1,2019
TX,Texas,90.0,15.1,57091.00,10342,25.0,2018
NY,New York,82.0,12.1,87069.00,25139,,
`

const statesTopo = `{
  "type": "Topology",
  "arcs": [[[0,0],[1,0],[1,1],[0,0]], [[2,0],[3,0],[3,1],[2,0]], [[4,0],[5,0],[5,1],[4,0]], [[6,0],[7,0],[7,1],[6,0]]],
  "objects": {
    "States": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[0]], "properties": {"STUSPS": "CA", "NAME": "California"}},
        {"type": "Polygon", "arcs": [[1]], "properties": {"STUSPS": "TX", "NAME": "Texas"}},
        {"type": "Polygon", "arcs": [[2]], "properties": {"STUSPS": "NY", "NAME": "New York"}},
        {"type": "Polygon", "arcs": [[3]], "properties": {"STUSPS": "WY", "NAME": "Wyoming"}}
      ]
    }
  }
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func fileConfig(t *testing.T, csv, topo string) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Tabular: TabularConfig{URI: writeFile(t, dir, "states.csv", csv)},
		Geo:     GeoConfig{URI: writeFile(t, dir, "states.topojson", topo)},
	}
}

func TestLoader_Load(t *testing.T) {
	l := NewLoader(fileConfig(t, statesCSV, statesTopo), catalog.Education(), nil, nil)

	ds, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Rows, 3)
	require.Len(t, ds.Features, 4)
	assert.Equal(t, 3, ds.Report.Matched)
	assert.Equal(t, []string{"WY"}, ds.Report.GeoOnly)
	assert.Empty(t, ds.Report.TabularOnly)
	assert.False(t, ds.LoadedAt.IsZero())

	ca := ds.Features[0]
	assert.True(t, ca.Joined)
	assert.Equal(t, model.Num(84531), ca.Properties.Value("SALARY_2020_2021"))
	y, ok := ca.Properties.Year("UNDERQUALIFIED_YEAR")
	assert.True(t, ok)
	assert.Equal(t, "2019", y)

	wy := ds.Features[3]
	assert.False(t, wy.Joined)
	assert.True(t, wy.Properties.Empty())

	in := ds.Input()
	assert.Same(t, ds.Catalog, in.Catalog)
	assert.Len(t, in.Rows, 3)
}

func TestLoader_MissingSource(t *testing.T) {
	cfg := fileConfig(t, statesCSV, statesTopo)
	cfg.Tabular.URI = filepath.Join(t.TempDir(), "absent.csv")

	_, err := NewLoader(cfg, catalog.Education(), nil, nil).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoadFailure))
	assert.False(t, errors.Is(err, ErrValidation))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, cfg.Tabular.URI, le.Source)
}

func TestLoader_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantMsg string
	}{
		{
			name:    "duplicate code",
			csv:     statesCSV + "CA,California Again,1,1,1,1,1,2019\n",
			wantMsg: "duplicate code CA",
		},
		{
			name:    "missing code column",
			csv:     "STATE,UNDERQUALIFIED_YEAR\nCalifornia,2019\n",
			wantMsg: `code column "STUSPS" not found`,
		},
		{
			name:    "missing year column",
			csv:     "STUSPS,STATE,UNDERQUALIFIED\nCA,California,13.1\n",
			wantMsg: "UNDERQUALIFIED_YEAR not found",
		},
		{
			name:    "value without year",
			csv:     "STUSPS,STATE,UNDERQUALIFIED,UNDERQUALIFIED_YEAR\nCA,California,13.1,\n",
			wantMsg: "UNDERQUALIFIED has a value but UNDERQUALIFIED_YEAR is empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(fileConfig(t, tt.csv, statesTopo), catalog.Education(), nil, nil)
			_, err := l.Load(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrLoadFailure))
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoader_DuplicateFeatureCodes(t *testing.T) {
	dup := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"STUSPS":"CA","NAME":"California"}},
	  {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"STUSPS":"CA","NAME":"California"}}
	]}`
	dir := t.TempDir()
	cfg := Config{
		Tabular: TabularConfig{URI: writeFile(t, dir, "s.csv", statesCSV)},
		Geo:     GeoConfig{URI: writeFile(t, dir, "s.geojson", dup)},
	}
	_, err := NewLoader(cfg, catalog.Education(), nil, nil).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "duplicate feature code CA")
}

type fakeSnapshots struct {
	snap *store.Snapshot
	err  error
}

func (f fakeSnapshots) LatestSnapshot(_ context.Context, name string) (*store.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.snap == nil || f.snap.Name != name {
		return nil, store.ErrNotFound
	}
	return f.snap, nil
}

func TestLoader_StoreSource(t *testing.T) {
	cfg := fileConfig(t, statesCSV, statesTopo)
	cfg.Tabular.URI = "store://education"
	snaps := fakeSnapshots{snap: &store.Snapshot{
		Name: "education",
		Rows: []model.RegionRecord{
			{Code: "TX", Name: "Texas", Cells: map[string]string{"SALARY_2020_2021": "57091", "UNDERQUALIFIED": "", "UNDERQUALIFIED_YEAR": ""}},
		},
	}}

	ds, err := NewLoader(cfg, catalog.Education(), nil, snaps).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, 1, ds.Report.Matched)
	assert.Equal(t, []string{"CA", "NY", "WY"}, ds.Report.GeoOnly)

	_, err = NewLoader(cfg, catalog.Education(), nil, nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a store")

	cfg.Tabular.URI = "store://missing"
	_, err = NewLoader(cfg, catalog.Education(), nil, snaps).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, errors.Is(err, ErrLoadFailure))
}

func TestLoader_HTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/states.csv":
			_, _ = w.Write([]byte(statesCSV))
		case "/states.json":
			_, _ = w.Write([]byte(statesTopo))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	opener := fetcher.NewOpener()
	opener.Register("http", fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RatePerHost: 100}))
	cfg := Config{
		Tabular: TabularConfig{URI: srv.URL + "/states.csv"},
		Geo:     GeoConfig{URI: srv.URL + "/states.json"},
	}

	ds, err := NewLoader(cfg, catalog.Education(), opener, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 3)
	assert.Len(t, ds.Features, 4)
}

func TestTabularFormat(t *testing.T) {
	tests := []struct {
		configured, uri, want string
	}{
		{"", "data/states.csv", FormatCSV},
		{"", "https://host/states.xlsx?dl=1", FormatXLSX},
		{"", "states.tsv", FormatTSV},
		{"", "s3://bucket/states", FormatCSV},
		{"XLSX", "states.csv", FormatXLSX},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TabularFormat(tt.configured, tt.uri), tt.uri)
	}
}

func TestParseRows(t *testing.T) {
	records := [][]string{
		{"\ufeffSTUSPS", " STATE ", "SALARY_2020_2021", "UNDERQUALIFIED_YEAR", "EXTRA"},
		{"ca", "California", "84531.00", "2019", "x"},
		{"", "", "", "", ""},
		{"TX", "", "57091"},
	}
	rows, err := ParseRows(records, catalog.Education(), "STUSPS", "STATE")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "ca", rows[0].Code)
	assert.Equal(t, "California", rows[0].Name)
	assert.Equal(t, map[string]string{"SALARY_2020_2021": "84531.00", "UNDERQUALIFIED_YEAR": "2019", "EXTRA": "x"}, rows[0].Cells)

	assert.Equal(t, "TX", rows[1].Name)
	assert.Equal(t, "", rows[1].Cells["UNDERQUALIFIED_YEAR"])

	_, err = ParseRows(nil, catalog.Education(), "STUSPS", "STATE")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestValidateRows(t *testing.T) {
	cat := catalog.Education()
	ok := []model.RegionRecord{
		{Code: "CA", Cells: map[string]string{"UNDERQUALIFIED": "13.1", "UNDERQUALIFIED_YEAR": "2019"}},
		{Code: "NY", Cells: map[string]string{"UNDERQUALIFIED": "", "UNDERQUALIFIED_YEAR": ""}},
	}
	assert.NoError(t, ValidateRows(cat, ok))

	bad := []model.RegionRecord{
		{Code: ""},
		{Code: "CA"},
		{Code: "CA"},
	}
	err := ValidateRows(cat, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "row 1 has an empty code")
	assert.Contains(t, err.Error(), "duplicate code CA")
}

func TestLoader_Load_CodesMatchExactly(t *testing.T) {
	csv := `STUSPS,STATE,GRAD_RATE_2018_2019,UNDERQUALIFIED,UNDERQUALIFIED_YEAR
ca,California,84.5,13.1,2019
TX,Texas,90.0,25.0,2018
`
	topo := `{
  "type": "Topology",
  "arcs": [[[0,0],[1,0],[1,1],[0,0]], [[2,0],[3,0],[3,1],[2,0]]],
  "objects": {
    "States": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[0]], "properties": {"STUSPS": "ca", "NAME": "California"}},
        {"type": "Polygon", "arcs": [[1]], "properties": {"STUSPS": "tx", "NAME": "Texas"}}
      ]
    }
  }
}`
	l := NewLoader(fileConfig(t, csv, topo), catalog.Education(), nil, nil)

	ds, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Features, 2)

	ca := ds.Features[0]
	assert.Equal(t, "ca", ca.Code)
	assert.True(t, ca.Joined)
	assert.Equal(t, model.Num(84.5), ca.Properties.Value("GRAD_RATE_2018_2019"))

	tx := ds.Features[1]
	assert.False(t, tx.Joined, "codes differing only in case do not join")
	assert.Equal(t, 1, ds.Report.Matched)
	assert.Equal(t, []string{"tx"}, ds.Report.GeoOnly)
	assert.Equal(t, []string{"TX"}, ds.Report.TabularOnly)
}
