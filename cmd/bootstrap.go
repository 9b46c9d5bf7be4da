package main

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/config"
	"github.com/sells-group/edmap/internal/dataset"
	"github.com/sells-group/edmap/internal/fetcher"
	"github.com/sells-group/edmap/internal/join"
	"github.com/sells-group/edmap/internal/resilience"
	"github.com/sells-group/edmap/internal/selection"
	"github.com/sells-group/edmap/internal/store"
)

// appEnv holds what the data commands share. Callers defer Close.
type appEnv struct {
	Catalog *catalog.Catalog
	Store   store.Store // nil unless the command or a data source needs it
	Loader  *dataset.Loader
}

// Close releases the store, if one was opened.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode, resolves the catalog, and builds the
// loader. The store is opened when withStore is set or the tabular source
// reads from it.
func initEnv(ctx context.Context, mode string, withStore bool) (*appEnv, error) {
	if err := cfg.ValidateFor(mode); err != nil {
		return nil, err
	}

	cat, err := catalog.Resolve(cfg.Catalog.Path, cfg.Catalog.LabelSet)
	if err != nil {
		return nil, err
	}

	opener, err := newOpener(ctx, cfg.Fetch, cfg.Data.Tabular.URI, cfg.Data.Geo.URI)
	if err != nil {
		return nil, err
	}

	env := &appEnv{Catalog: cat}
	if withStore || fetcher.Scheme(cfg.Data.Tabular.URI) == dataset.SchemeStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	var snapshots dataset.SnapshotSource
	if env.Store != nil {
		snapshots = env.Store
	}
	env.Loader = dataset.NewLoader(cfg.Data, cat, opener, snapshots)
	return env, nil
}

// initStore opens and migrates the configured snapshot store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newOpener registers a source per supported scheme. The S3 client is only
// built when one of uris needs it.
func newOpener(ctx context.Context, fc config.FetchConfig, uris ...string) (*fetcher.Opener, error) {
	timeout := time.Duration(fc.TimeoutSecs) * time.Second

	retry := resilience.DefaultPolicy()
	retry.Attempts = fc.Retries + 1

	o := fetcher.NewOpener()
	httpSrc := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:   fc.UserAgent,
		Timeout:     timeout,
		RatePerHost: fc.RatePerHost,
		Retry:       retry,
	})
	o.Register("http", httpSrc)
	o.Register("https", httpSrc)
	o.Register("ftp", fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: timeout}))

	for _, uri := range uris {
		if fetcher.Scheme(uri) != "s3" {
			continue
		}
		s3Src, err := fetcher.NewS3Fetcher(ctx, fetcher.S3Options{
			Region:          fc.S3.Region,
			Endpoint:        fc.S3.Endpoint,
			PathStyle:       fc.S3.PathStyle,
			AccessKeyID:     fc.S3.AccessKeyID,
			SecretAccessKey: fc.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		o.Register("s3", s3Src)
		zap.L().Debug("s3 source enabled", zap.String("region", fc.S3.Region))
		break
	}
	return o, nil
}

// newSelectionOptions builds controller options from cfg.
func newSelectionOptions(rec selection.Recorder) (selection.Options, error) {
	copts, err := cfg.ClassifyOptions()
	if err != nil {
		return selection.Options{}, err
	}
	return selection.Options{Classify: copts, Layout: cfg.Chart, Recorder: rec}, nil
}

// loadController loads the dataset and expresses the first attribute.
func loadController(ctx context.Context, env *appEnv) (*dataset.Dataset, *selection.Controller, error) {
	ds, err := env.Loader.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts, err := newSelectionOptions(nil)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := selection.New(ds.Input(), opts)
	if err != nil {
		return nil, nil, err
	}
	return ds, ctrl, nil
}

func normalizeFormat(f string) string { return strings.ToLower(strings.TrimSpace(f)) }

// reportOf returns ds's join report, or the zero report when ds is nil.
func reportOf(ds *dataset.Dataset) join.Report {
	if ds == nil {
		return join.Report{}
	}
	return ds.Report
}

// openOutput returns stdout for "" or "-", otherwise a created file.
func openOutput(out string, stdout io.Writer) (io.Writer, func() error, error) {
	if out == "" || out == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", out)
	}
	return f, f.Close, nil
}
