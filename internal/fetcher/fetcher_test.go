package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheme(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"data/EducationData.csv", "file"},
		{"/abs/path.csv", "file"},
		{"file:///tmp/x.csv", "file"},
		{"HTTPS://example.com/x.csv", "https"},
		{"ftp://host/x.csv", "ftp"},
		{"s3://bucket/key.csv", "s3"},
		{"store://education", "store"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, Scheme(tt.uri))
		})
	}
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".csv", Ext("data/EducationData.CSV"))
	assert.Equal(t, ".topojson", Ext("https://example.com/States.topojson?v=2"))
	assert.Equal(t, ".zip", Ext("s3://bucket/shapes/states.zip"))
	assert.Equal(t, "", Ext("store://education"))
}

func TestOpener_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	o := NewOpener()
	data, err := o.ReadAll(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	data, err = o.ReadAll(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	_, err = o.ReadAll(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestOpener_Register(t *testing.T) {
	o := NewOpener()
	_, err := o.Open(context.Background(), "mem://x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source for scheme")

	o.Register("mem", SourceFunc(func(_ context.Context, uri string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("hello " + uri)), nil
	}))
	data, err := o.ReadAll(context.Background(), "mem://x")
	require.NoError(t, err)
	assert.Equal(t, "hello mem://x", string(data))
}
