package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/classify"
	"github.com/sells-group/edmap/internal/config"
	"github.com/sells-group/edmap/internal/model"
	"github.com/sells-group/edmap/internal/view"
)

const statesCSV = `STUSPS,STATE,GRAD_RATE_2018_2019,STUDENTS_REL_COUNT_2020_2021,SALARY_2020_2021,EXPENDITURES_2019_2020,UNDERQUALIFIED,UNDERQUALIFIED_YEAR
CA,California,84.5,22.7,84531.00,14031,13.1,2019
TX,Texas,90.0,15.1,57091.00,10342,25.0,2018
NY,New York,82.0,12.1,87069.00,25139,4.2,2019
FL,Florida,90.1,16.9,51009.00,10401,31.5,2018
OH,Ohio,82.1,16.7,64000.00,13027,7.7,2019
MS,Mississippi,88.0,15.0,46843.00,9885,40.2,2019
`

const statesTopo = `{
  "type": "Topology",
  "arcs": [
    [[0,0],[1,0],[1,1],[0,0]], [[2,0],[3,0],[3,1],[2,0]], [[4,0],[5,0],[5,1],[4,0]],
    [[6,0],[7,0],[7,1],[6,0]], [[8,0],[9,0],[9,1],[8,0]], [[10,0],[11,0],[11,1],[10,0]],
    [[12,0],[13,0],[13,1],[12,0]]
  ],
  "objects": {
    "States": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[0]], "properties": {"STUSPS": "CA", "NAME": "California"}},
        {"type": "Polygon", "arcs": [[1]], "properties": {"STUSPS": "TX", "NAME": "Texas"}},
        {"type": "Polygon", "arcs": [[2]], "properties": {"STUSPS": "NY", "NAME": "New York"}},
        {"type": "Polygon", "arcs": [[3]], "properties": {"STUSPS": "FL", "NAME": "Florida"}},
        {"type": "Polygon", "arcs": [[4]], "properties": {"STUSPS": "OH", "NAME": "Ohio"}},
        {"type": "Polygon", "arcs": [[5]], "properties": {"STUSPS": "MS", "NAME": "Mississippi"}},
        {"type": "Polygon", "arcs": [[6]], "properties": {"STUSPS": "WY", "NAME": "Wyoming"}}
      ]
    }
  }
}`

// setupConfig points the global config at fixture files in a temp working
// directory, so the default sqlite store lands there too.
func setupConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "states.csv"), []byte(statesCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "states.topojson"), []byte(statesTopo), 0o644))

	c, err := config.Load()
	require.NoError(t, err)
	c.Data.Tabular.URI = filepath.Join(dir, "states.csv")
	c.Data.Geo.URI = filepath.Join(dir, "states.topojson")
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(dir, "edmap.db")

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"serve", "render", "breaks", "validate", "import", "snapshots", "catalog"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "edmap", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd  string
		flag string
		def  string
	}{
		{"serve", "port", "0"},
		{"render", "attribute", ""},
		{"render", "format", "json"},
		{"render", "out", ""},
		{"validate", "strict", "false"},
		{"import", "name", ""},
		{"snapshots", "name", ""},
		{"catalog", "json", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.flag, func(t *testing.T) {
			c, _, err := rootCmd.Find([]string{tt.cmd})
			require.NoError(t, err)
			f := c.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestImportCommand_NameRequired(t *testing.T) {
	f := importCmd.Flags().Lookup("name")
	require.NotNil(t, f)
	assert.Equal(t, []string{"true"}, f.Annotations["cobra_annotation_bash_completion_one_required_flag"])
}

func TestRunValidate(t *testing.T) {
	setupConfig(t)
	ctx := context.Background()
	env, err := initEnv(ctx, "validate", false)
	require.NoError(t, err)
	defer env.Close()
	assert.Nil(t, env.Store)

	var buf bytes.Buffer
	require.NoError(t, runValidate(ctx, env, &buf, false))
	out := buf.String()
	assert.Contains(t, out, "rows:         6")
	assert.Contains(t, out, "features:     7")
	assert.Contains(t, out, "matched:      6")
	assert.Contains(t, out, "geo only:     WY")
	assert.Contains(t, out, "tabular only: -")

	buf.Reset()
	err = runValidate(ctx, env, &buf, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 region codes did not join")
}

func TestInitEnv_InvalidConfig(t *testing.T) {
	setupConfig(t)
	cfg.Data.Geo.URI = ""

	_, err := initEnv(context.Background(), "validate", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.geo.uri is required")
}

func TestRunRender(t *testing.T) {
	setupConfig(t)
	ctx := context.Background()
	env, err := initEnv(ctx, "render", false)
	require.NoError(t, err)
	defer env.Close()

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, runRender(ctx, env, &buf, "SALARY_2020_2021", renderJSON))
		var v view.View
		require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
		assert.Equal(t, "SALARY_2020_2021", v.Attribute.Key)
		assert.Len(t, v.Map.Regions, 7)
		assert.Len(t, v.Chart.Bars, 6)
		assert.Equal(t, "NY", v.Chart.Bars[0].Code)
	})

	t.Run("default attribute", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, runRender(ctx, env, &buf, "", renderJSON))
		var v view.View
		require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
		assert.Equal(t, "GRAD_RATE_2018_2019", v.Attribute.Key)
	})

	t.Run("svg", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, runRender(ctx, env, &buf, "", renderSVG))
		assert.Contains(t, buf.String(), "<svg")
	})

	t.Run("geojson", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, runRender(ctx, env, &buf, "EXPENDITURES_2019_2020", renderGeoJSON))
		assert.True(t, strings.HasPrefix(buf.String(), "{"))
		assert.Contains(t, buf.String(), `"FeatureCollection"`)
		assert.Contains(t, buf.String(), `"fill":"#CCC"`)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		var buf bytes.Buffer
		err := runRender(ctx, env, &buf, "BOGUS", renderJSON)
		require.Error(t, err)
	})
}

func TestWriteBreaks(t *testing.T) {
	rows := []model.RegionRecord{
		{Code: "A", Cells: map[string]string{"GRAD_RATE_2018_2019": "1"}},
		{Code: "B", Cells: map[string]string{"GRAD_RATE_2018_2019": "2"}},
		{Code: "C", Cells: map[string]string{"GRAD_RATE_2018_2019": "10"}},
		{Code: "D", Cells: map[string]string{"GRAD_RATE_2018_2019": "11"}},
		{Code: "E", Cells: map[string]string{"GRAD_RATE_2018_2019": "20"}},
		{Code: "F", Cells: map[string]string{"GRAD_RATE_2018_2019": "21"}},
		{Code: "G", Cells: map[string]string{"GRAD_RATE_2018_2019": "30"}},
		{Code: "H", Cells: map[string]string{"GRAD_RATE_2018_2019": "40"}},
	}
	var buf bytes.Buffer
	writeBreaks(&buf, catalog.Education(), rows, classify.DefaultOptions())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "THRESHOLDS")
	assert.Contains(t, lines[1], "GRAD_RATE_2018_2019")
	assert.Contains(t, lines[1], "10, 20, 30, 40")
	assert.Contains(t, lines[2], "insufficient data")
}

func TestImportAndServeFromStore(t *testing.T) {
	setupConfig(t)
	ctx := context.Background()

	env, err := initEnv(ctx, "import", true)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, runImport(ctx, env, &buf, "edu"))
	assert.Contains(t, buf.String(), "edu\t6 rows")

	snaps, err := env.Store.ListSnapshots(ctx, "")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	env.Close()

	buf.Reset()
	formatSnapshots(&buf, snaps)
	assert.Contains(t, buf.String(), "ID")
	assert.Contains(t, buf.String(), snaps[0].ID)

	cfg.Data.Tabular.URI = "store://edu"
	env, err = initEnv(ctx, "validate", false)
	require.NoError(t, err)
	defer env.Close()
	require.NotNil(t, env.Store)

	ds, err := env.Loader.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 6)
	assert.Equal(t, 6, ds.Report.Matched)
}

func TestWriteCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCatalog(&buf, catalog.Education(), false))
	out := buf.String()
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "High School Graduation Rates")
	assert.Contains(t, out, "UNDERQUALIFIED_YEAR")

	buf.Reset()
	require.NoError(t, writeCatalog(&buf, catalog.EducationLong(), true))
	var attrs []catalog.Attribute
	require.NoError(t, json.Unmarshal(buf.Bytes(), &attrs))
	require.Len(t, attrs, 5)
	assert.Equal(t, "SALARY_2020_2021", attrs[0].Key)
}

func TestOpenOutput(t *testing.T) {
	var stdout bytes.Buffer
	w, closeFn, err := openOutput("", &stdout)
	require.NoError(t, err)
	assert.Same(t, &stdout, w)
	require.NoError(t, closeFn())

	path := filepath.Join(t.TempDir(), "view.json")
	w, closeFn, err = openOutput(path, &stdout)
	require.NoError(t, err)
	_, err = w.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestReportOf(t *testing.T) {
	assert.Zero(t, reportOf(nil).Matched)
}
