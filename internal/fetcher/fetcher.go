// Package fetcher opens dataset sources by URI and parses tabular files.
//
// Supported schemes are local paths and file://, http(s)://, ftp:// and
// s3://bucket/key. Parsers cover CSV (with optional charset conversion),
// XLSX, and ZIP archives.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// Source opens one kind of URI.
type Source interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, uri string) (io.ReadCloser, error)

// Open implements Source.
func (f SourceFunc) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return f(ctx, uri)
}

// Opener dispatches a URI to the Source registered for its scheme.
type Opener struct {
	sources map[string]Source
}

// NewOpener returns an Opener serving local files. Register adds the rest.
func NewOpener() *Opener {
	o := &Opener{sources: make(map[string]Source)}
	o.Register("file", FileSource{})
	return o
}

// Register binds scheme (without "://") to src, replacing any previous one.
func (o *Opener) Register(scheme string, src Source) {
	o.sources[strings.ToLower(scheme)] = src
}

// Open resolves uri's scheme and opens it. Bare paths are local files.
func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	scheme := Scheme(uri)
	src, ok := o.sources[scheme]
	if !ok {
		return nil, eris.Errorf("fetcher: no source for scheme %q (%s)", scheme, uri)
	}
	rc, err := src.Open(ctx, uri)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", uri)
	}
	return rc, nil
}

// ReadAll opens uri and reads it fully.
func (o *Opener) ReadAll(ctx context.Context, uri string) ([]byte, error) {
	rc, err := o.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", uri)
	}
	return data, nil
}

// Scheme returns the lower-cased URI scheme, or "file" for bare paths.
func Scheme(uri string) string {
	i := strings.Index(uri, "://")
	if i <= 0 {
		return "file"
	}
	return strings.ToLower(uri[:i])
}

// Ext returns the lower-cased extension of the URI's path, ignoring any
// query string.
func Ext(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}
