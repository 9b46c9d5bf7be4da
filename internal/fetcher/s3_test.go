package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves path-style GetObject requests from memory.
type fakeS3 struct{ objects map[string][]byte }

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	path := strings.TrimPrefix(req.URL.Path, "/")
	body, ok := f.objects[path]
	if req.Method != http.MethodGet || !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader(`<Error><Code>NoSuchKey</Code></Error>`)),
			Header:     http.Header{"Content-Type": {"application/xml"}},
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header: http.Header{
			"Content-Length": {strconv.Itoa(len(body))},
			"Content-Type":   {"text/csv"},
		},
	}, nil
}

func newFakeS3Fetcher(t *testing.T, objects map[string][]byte) *S3Fetcher {
	t.Helper()
	f, err := NewS3Fetcher(context.Background(), S3Options{
		Region:          "us-east-1",
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	}, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: &fakeS3{objects: objects}}
	})
	require.NoError(t, err)
	return f
}

func TestS3Fetcher_Open(t *testing.T) {
	f := newFakeS3Fetcher(t, map[string][]byte{
		"edu-data/EducationData.csv": []byte("STUSPS,STATE\nCA,California\n"),
	})

	rc, err := f.Open(context.Background(), "s3://edu-data/EducationData.csv")
	require.NoError(t, err)
	defer rc.Close() //nolint:errcheck
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "STUSPS,STATE\nCA,California\n", string(body))

	_, err = f.Open(context.Background(), "s3://edu-data/missing.csv")
	assert.Error(t, err)
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://bucket/a/b/c.csv")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b/c.csv", key)

	for _, bad := range []string{"s3://bucket", "s3:///key", "http://bucket/key"} {
		_, _, err := ParseS3URI(bad)
		assert.Error(t, err, bad)
	}
}
