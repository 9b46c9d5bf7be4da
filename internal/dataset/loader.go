// Package dataset loads the tabular statistics and region boundaries,
// validates them, and joins them into the input for the view layer.
package dataset

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/fetcher"
	"github.com/sells-group/edmap/internal/geo"
	"github.com/sells-group/edmap/internal/join"
	"github.com/sells-group/edmap/internal/model"
	"github.com/sells-group/edmap/internal/store"
	"github.com/sells-group/edmap/internal/view"
)

// Tabular formats.
const (
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
	FormatXLSX = "xlsx"
)

// SchemeStore reads the latest stored snapshot instead of fetching.
const SchemeStore = "store"

// TabularConfig locates the per-region statistics.
type TabularConfig struct {
	URI string `mapstructure:"uri" json:"uri"`
	// Format is csv, tsv, or xlsx. Empty picks from the URI extension.
	Format     string `mapstructure:"format" json:"format,omitempty"`
	Encoding   string `mapstructure:"encoding" json:"encoding,omitempty"`
	Sheet      string `mapstructure:"sheet" json:"sheet,omitempty"`
	CodeColumn string `mapstructure:"code_column" json:"code_column"`
	NameColumn string `mapstructure:"name_column" json:"name_column"`
}

// GeoConfig locates the region boundaries.
type GeoConfig struct {
	URI string `mapstructure:"uri" json:"uri"`
	// Format is topojson, geojson, or shapefile. Empty sniffs the content.
	Format       string `mapstructure:"format" json:"format,omitempty"`
	Object       string `mapstructure:"object" json:"object"`
	CodeProperty string `mapstructure:"code_property" json:"code_property"`
	NameProperty string `mapstructure:"name_property" json:"name_property"`
}

// Config describes both sources.
type Config struct {
	Tabular TabularConfig `mapstructure:"tabular" json:"tabular"`
	Geo     GeoConfig     `mapstructure:"geo" json:"geo"`
}

func (c Config) withDefaults() Config {
	if c.Tabular.CodeColumn == "" {
		c.Tabular.CodeColumn = "STUSPS"
	}
	if c.Tabular.NameColumn == "" {
		c.Tabular.NameColumn = "STATE"
	}
	d := geo.DefaultOptions()
	if c.Geo.Object == "" {
		c.Geo.Object = d.Object
	}
	if c.Geo.CodeProperty == "" {
		c.Geo.CodeProperty = d.CodeProperty
	}
	if c.Geo.NameProperty == "" {
		c.Geo.NameProperty = d.NameProperty
	}
	return c
}

// SnapshotSource serves store:// tabular URIs.
type SnapshotSource interface {
	LatestSnapshot(ctx context.Context, name string) (*store.Snapshot, error)
}

// Dataset is a validated, joined pair of sources.
type Dataset struct {
	Catalog  *catalog.Catalog
	Rows     []model.RegionRecord
	Features []model.GeoFeature
	Report   join.Report
	LoadedAt time.Time
}

// Input exposes the dataset to the view layer.
func (d *Dataset) Input() view.Input {
	return view.Input{Catalog: d.Catalog, Features: d.Features, Rows: d.Rows}
}

// Loader fetches, parses, validates and joins both sources.
type Loader struct {
	cfg       Config
	cat       *catalog.Catalog
	opener    *fetcher.Opener
	snapshots SnapshotSource
}

// NewLoader builds a loader. snapshots may be nil when no store:// URI is
// configured.
func NewLoader(cfg Config, cat *catalog.Catalog, opener *fetcher.Opener, snapshots SnapshotSource) *Loader {
	if opener == nil {
		opener = fetcher.NewOpener()
	}
	return &Loader{cfg: cfg.withDefaults(), cat: cat, opener: opener, snapshots: snapshots}
}

// Load fetches both sources concurrently. Any failure aborts the load with
// an error matching ErrLoadFailure; the geography-tabular join itself
// tolerates misses and reports them.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	start := time.Now()
	var (
		rows     []model.RegionRecord
		features []model.GeoFeature
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = l.LoadRows(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		features, err = l.LoadFeatures(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := &Dataset{
		Catalog:  l.cat,
		Rows:     rows,
		Features: join.Join(l.cat, features, rows),
		Report:   join.Reconcile(features, rows),
		LoadedAt: time.Now().UTC(),
	}
	if ds.Report.Misses() > 0 {
		zap.L().Warn("dataset: unmatched region codes",
			zap.Strings("geo_only", ds.Report.GeoOnly),
			zap.Strings("tabular_only", ds.Report.TabularOnly),
		)
	}
	zap.L().Info("dataset: loaded",
		zap.Int("rows", len(rows)),
		zap.Int("features", len(features)),
		zap.Int("matched", ds.Report.Matched),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ds, nil
}

// LoadRows fetches, parses, and validates the tabular source.
func (l *Loader) LoadRows(ctx context.Context) ([]model.RegionRecord, error) {
	tc := l.cfg.Tabular
	if tc.URI == "" {
		return nil, loadError("tabular", eris.New("dataset: no tabular uri configured"))
	}

	var rows []model.RegionRecord
	if fetcher.Scheme(tc.URI) == SchemeStore {
		snap, err := l.snapshot(ctx, tc.URI)
		if err != nil {
			return nil, loadError(tc.URI, err)
		}
		rows = snap.Rows
		if err := checkColumns(snapshotColumns(rows), l.cat); err != nil {
			return nil, loadError(tc.URI, err)
		}
	} else {
		records, err := l.readRecords(ctx, tc)
		if err != nil {
			return nil, loadError(tc.URI, err)
		}
		rows, err = ParseRows(records, l.cat, tc.CodeColumn, tc.NameColumn)
		if err != nil {
			return nil, loadError(tc.URI, err)
		}
	}
	if err := ValidateRows(l.cat, rows); err != nil {
		return nil, loadError(tc.URI, err)
	}
	return rows, nil
}

func (l *Loader) snapshot(ctx context.Context, uri string) (*store.Snapshot, error) {
	if l.snapshots == nil {
		return nil, eris.Errorf("dataset: %s requires a store", uri)
	}
	name := strings.TrimPrefix(uri, SchemeStore+"://")
	snap, err := l.snapshots.LatestSnapshot(ctx, name)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: snapshot %s", name)
	}
	return snap, nil
}

// snapshotColumns lists the cell keys present in any stored row.
func snapshotColumns(rows []model.RegionRecord) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range rows {
		for k := range r.Cells {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

func (l *Loader) readRecords(ctx context.Context, tc TabularConfig) ([][]string, error) {
	format := TabularFormat(tc.Format, tc.URI)
	switch format {
	case FormatXLSX:
		data, err := l.opener.ReadAll(ctx, tc.URI)
		if err != nil {
			return nil, err
		}
		return fetcher.ReadXLSX(data, fetcher.XLSXOptions{SheetName: tc.Sheet})
	case FormatCSV, FormatTSV:
		rc, err := l.opener.Open(ctx, tc.URI)
		if err != nil {
			return nil, err
		}
		defer rc.Close() //nolint:errcheck
		opts := fetcher.CSVOptions{Encoding: tc.Encoding, TrimSpace: true}
		if format == FormatTSV {
			opts.Delimiter = '\t'
		}
		return fetcher.ReadCSV(ctx, rc, opts)
	}
	return nil, eris.Errorf("dataset: unsupported tabular format %q", format)
}

// TabularFormat resolves the configured format, falling back to the URI
// extension and then to CSV.
func TabularFormat(configured, uri string) string {
	if configured != "" {
		return strings.ToLower(configured)
	}
	switch fetcher.Ext(uri) {
	case ".xlsx":
		return FormatXLSX
	case ".tsv", ".tab":
		return FormatTSV
	}
	return FormatCSV
}

// LoadFeatures fetches and decodes the geographic source.
func (l *Loader) LoadFeatures(ctx context.Context) ([]model.GeoFeature, error) {
	gc := l.cfg.Geo
	if gc.URI == "" {
		return nil, loadError("geo", eris.New("dataset: no geo uri configured"))
	}
	opts := geo.Options{Object: gc.Object, CodeProperty: gc.CodeProperty, NameProperty: gc.NameProperty}

	features, err := l.decodeFeatures(ctx, gc, opts)
	if err != nil {
		return nil, loadError(gc.URI, err)
	}
	if len(features) == 0 {
		return nil, loadError(gc.URI, eris.Wrap(ErrValidation, "dataset: no features"))
	}
	if err := ValidateFeatures(features); err != nil {
		return nil, loadError(gc.URI, err)
	}
	return features, nil
}

func (l *Loader) decodeFeatures(ctx context.Context, gc GeoConfig, opts geo.Options) ([]model.GeoFeature, error) {
	ext := fetcher.Ext(gc.URI)
	// An unzipped .shp needs its sibling .dbf, so it is read in place.
	if ext == ".shp" && fetcher.Scheme(gc.URI) == "file" {
		return geo.ReadShapefile(strings.TrimPrefix(gc.URI, "file://"), opts)
	}

	data, err := l.opener.ReadAll(ctx, gc.URI)
	if err != nil {
		return nil, err
	}
	format := strings.ToLower(gc.Format)
	if format == "" {
		format, err = geo.DetectFormat(ext, bytes.TrimSpace(data))
		if err != nil {
			return nil, err
		}
	}
	return geo.Decode(format, data, opts)
}
