package static

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/shravanasati/relay/internal/invoke"
	"github.com/shravanasati/relay/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"hello.txt":         {Data: []byte("hello world")},
		"notes..v2.txt":     {Data: []byte("second draft")},
		"site/index.html":   {Data: []byte("<h1>home</h1>")},
		"site/app.js":       {Data: []byte("console.log(1)")},
		"empty/.gitkeep":    {Data: nil},
		"blob":              {Data: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}},
		"nested/deep/a.css": {Data: []byte("body{}")},
	}
}

func TestHandler(t *testing.T) {
	h := Handler("static", "file", testFS())

	testCases := []struct {
		name           string
		file           string
		expectedStatus response.StatusCode
		expectedBody   string
		expectedType   string
	}{
		{"plain file", "hello.txt", response.StatusOK, "hello world", "text/plain; charset=utf-8"},
		{"leading slash", "/hello.txt", response.StatusOK, "hello world", "text/plain; charset=utf-8"},
		{"directory index", "site", response.StatusOK, "<h1>home</h1>", "text/html; charset=utf-8"},
		{"directory index with slash", "site/", response.StatusOK, "<h1>home</h1>", "text/html; charset=utf-8"},
		{"nested", "nested/deep/a.css", response.StatusOK, "body{}", "text/css; charset=utf-8"},
		{"sniffed type", "blob", response.StatusOK, "\x89PNG\r\n\x1a\n", "image/png"},
		{"missing file", "nope.txt", response.StatusNotFound, "File Not Found", "text/plain"},
		{"directory without index", "empty", response.StatusNotFound, "File Not Found", "text/plain"},
		{"dots inside a name", "notes..v2.txt", response.StatusOK, "second draft", "text/plain; charset=utf-8"},
		{"traversal to a missing file", "site/../../../etc/passwd", response.StatusNotFound, "File Not Found", "text/plain"},
		{"traversal stays inside the root", "../../site", response.StatusOK, "<h1>home</h1>", "text/html; charset=utf-8"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := invoke.Invoke(context.Background(), h, invoke.Params{"file": tc.file})
			require.NoError(t, err)
			resp, ok := out.(response.Response)
			require.True(t, ok)

			assert.Equal(t, tc.expectedStatus, resp.StatusCode())
			assert.Equal(t, tc.expectedBody, string(resp.Body()))
			assert.Equal(t, tc.expectedType, resp.MimeType())
			if tc.expectedStatus == response.StatusOK {
				assert.Equal(t, response.ETag([]byte(tc.expectedBody)), resp.Header("etag"))
			}
		})
	}
}

type deniedFS struct{}

func (deniedFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
}

func TestHandlerFailure(t *testing.T) {
	h := Handler("static", "file", deniedFS{})

	_, err := invoke.Invoke(context.Background(), h, invoke.Params{"file": "x"})
	var failure *invoke.InvocationFailure
	require.ErrorAs(t, err, &failure)
	assert.ErrorIs(t, failure.Cause, fs.ErrPermission)
}
