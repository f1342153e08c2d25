package response

import (
	"crypto/sha1"
	"fmt"
)

// ETag returns a strong entity tag for body: its quoted SHA-1 in hex.
func ETag(body []byte) string {
	return fmt.Sprintf(`"%x"`, sha1.Sum(body))
}

// WithETag returns a copy tagged with the ETag of its body.
func (r Response) WithETag() Response {
	return r.SetHeader("etag", ETag(r.body))
}

// Redirect creates a bodiless redirect to location. Use StatusFound or
// StatusMovedPermanently.
func Redirect(status StatusCode, location string) Response {
	return New(status).
		SetHeader("location", location).
		SetHeader("content-length", "0")
}
