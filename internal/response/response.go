// Package response defines the immutable response value produced by
// interceptors and by the dispatcher's terminal stage.
package response

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shravanasati/relay/internal/headers"
)

const (
	MimeText = "text/plain"
	MimeJSON = "application/json"
	MimeHTML = "text/html"
)

// Response is an immutable status, header set and body. The With* methods
// return modified copies and never touch the receiver.
type Response struct {
	status  StatusCode
	headers *headers.Headers
	body    []byte
}

// New creates a bodiless response with the given status.
func New(status StatusCode) Response {
	return Response{status: status, headers: headers.NewHeaders()}
}

// Empty is a 200 response without a body.
func Empty() Response {
	return New(StatusOK)
}

// Text creates a response with a text/plain body.
func Text(status StatusCode, body string) Response {
	return Body(status, MimeText, []byte(body))
}

// Body creates a response with the given mime type and body.
func Body(status StatusCode, mimeType string, body []byte) Response {
	r := New(status)
	if mimeType != "" {
		r.headers.Set("content-type", mimeType)
	}
	r.body = bytes.Clone(body)
	r.headers.Set("content-length", strconv.Itoa(len(body)))
	return r
}

// JSON marshals data into an application/json response.
func JSON(status StatusCode, data any) (Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return Response{}, wrapEncode(err)
	}
	return Body(status, MimeJSON, body), nil
}

// Status returns a response carrying only the status and its reason phrase
// as a text body, the shape used for generic 4xx/5xx replies.
func Status(status StatusCode) Response {
	return Text(status, status.Reason())
}

// StatusCode returns the status.
func (r Response) StatusCode() StatusCode {
	return r.status
}

// Header returns a single header value.
func (r Response) Header(key string) string {
	return r.headers.Get(key)
}

// Headers returns a copy of the header set.
func (r Response) Headers() *headers.Headers {
	return r.headers.Clone()
}

// Body returns a copy of the body.
func (r Response) Body() []byte {
	return bytes.Clone(r.body)
}

// MimeType returns the content-type header.
func (r Response) MimeType() string {
	return r.headers.Get("content-type")
}

// IsZero reports whether r is the zero value, which is not a usable response.
func (r Response) IsZero() bool {
	return r.status == 0 && r.headers == nil && r.body == nil
}

// WithStatusCode returns a copy with a different status.
func (r Response) WithStatusCode(code StatusCode) Response {
	r.headers = r.headers.Clone()
	r.status = code
	return r
}

// WithHeader returns a copy with value appended to the header.
func (r Response) WithHeader(key, value string) Response {
	r.headers = r.headers.Clone()
	r.headers.Add(key, value)
	return r
}

// SetHeader returns a copy with the header replaced.
func (r Response) SetHeader(key, value string) Response {
	r.headers = r.headers.Clone()
	r.headers.Set(key, value)
	return r
}

// WithHeaders returns a copy with every entry of hs appended.
func (r Response) WithHeaders(hs map[string]string) Response {
	r.headers = r.headers.Clone()
	for k, v := range hs {
		r.headers.Add(k, v)
	}
	return r
}

// WithoutHeader returns a copy with the header removed.
func (r Response) WithoutHeader(key string) Response {
	r.headers = r.headers.Clone()
	r.headers.Remove(key)
	return r
}

// WithBody returns a copy with a new body; content-length follows it.
func (r Response) WithBody(body []byte) Response {
	r.headers = r.headers.Clone()
	r.body = bytes.Clone(body)
	r.headers.Set("content-length", strconv.Itoa(len(body)))
	return r
}
