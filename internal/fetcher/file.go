package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// FileSource opens local paths and file:// URIs.
type FileSource struct{}

// Open implements Source.
func (FileSource) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	f, err := os.Open(strings.TrimPrefix(uri, "file://"))
	if err != nil {
		return nil, eris.Wrap(err, "file: open")
	}
	return f, nil
}
