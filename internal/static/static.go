// Package static serves files from an fs.FS as a route handler. Mount it
// on a wildcard route such as GET /static/*file.
package static

import (
	"context"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/invoke"
	"github.com/shravanasati/relay/internal/response"
)

const indexFile = "index.html"

// Handler returns a descriptor serving the file named by the wildcard
// parameter param. Directories serve their index.html. Paths escaping the
// root and missing files answer 404. Files carry an ETag of their content.
func Handler(name, param string, fsys fs.FS) *invoke.Descriptor {
	notFound := response.Text(response.StatusNotFound, "File Not Found")

	return invoke.Raw(name, func(ctx context.Context, params invoke.Params) (any, error) {
		// rooting the path before cleaning drops every ".." segment
		cleaned := strings.TrimPrefix(path.Clean("/"+params.Get(param)), "/")
		if cleaned == "" {
			cleaned = "."
		}

		info, err := fs.Stat(fsys, cleaned)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return notFound, nil
			}
			return nil, errors.Wrapf(err, "stat %s", cleaned)
		}
		if info.IsDir() {
			cleaned = path.Join(cleaned, indexFile)
		}

		data, err := readFile(fsys, cleaned)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return notFound, nil
			}
			return nil, errors.Wrapf(err, "read %s", cleaned)
		}
		return response.Body(response.StatusOK, contentType(cleaned, data), data).WithETag(), nil
	})
}

func readFile(fsys fs.FS, name string) ([]byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func contentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
