// Package request defines the immutable, already parsed request value that
// flows through the interceptor chain.
package request

import (
	"bytes"
	"maps"
	"strings"

	"github.com/shravanasati/relay/internal/headers"
)

// Request is an inbound request. It is never mutated after construction;
// interceptors that want to change it pass a With* copy to the next stage.
type Request struct {
	method     string
	target     string
	params     map[string]string
	headers    *headers.Headers
	body       []byte
	remoteAddr string
}

// Option configures a Request built with New.
type Option func(*Request)

// WithParams sets the named parameters.
func WithParams(p map[string]string) Option {
	return func(r *Request) {
		r.params = maps.Clone(p)
	}
}

// WithHeaders sets the header set.
func WithHeaders(h *headers.Headers) Option {
	return func(r *Request) {
		r.headers = h.Clone()
	}
}

// WithBody sets the raw body.
func WithBody(b []byte) Option {
	return func(r *Request) {
		r.body = bytes.Clone(b)
	}
}

// WithRemoteAddr sets the peer address.
func WithRemoteAddr(addr string) Option {
	return func(r *Request) {
		r.remoteAddr = addr
	}
}

// New builds a request. The method is upper-cased.
func New(method, target string, opts ...Option) Request {
	r := Request{
		method:  strings.ToUpper(method),
		target:  target,
		params:  map[string]string{},
		headers: headers.NewHeaders(),
	}
	for _, opt := range opts {
		opt(&r)
	}
	if r.params == nil {
		r.params = map[string]string{}
	}
	return r
}

func (r Request) Method() string     { return r.method }
func (r Request) Target() string     { return r.target }
func (r Request) RemoteAddr() string { return r.remoteAddr }

// Params returns a copy of the named parameters.
func (r Request) Params() map[string]string {
	return maps.Clone(r.params)
}

// Param returns a single parameter and whether it was present.
func (r Request) Param(name string) (string, bool) {
	v, ok := r.params[name]
	return v, ok
}

// Header returns a single header value.
func (r Request) Header(key string) string {
	return r.headers.Get(key)
}

// Headers returns a copy of the header set.
func (r Request) Headers() *headers.Headers {
	return r.headers.Clone()
}

// Body returns a copy of the body.
func (r Request) Body() []byte {
	return bytes.Clone(r.body)
}

// BodyLen returns the body size without copying it.
func (r Request) BodyLen() int {
	return len(r.body)
}

// WithParam returns a copy with one parameter set.
func (r Request) WithParam(name, value string) Request {
	r.params = maps.Clone(r.params)
	if r.params == nil {
		r.params = map[string]string{}
	}
	r.params[name] = value
	return r
}

// WithParams returns a copy with every entry of p set, overriding existing
// parameters of the same name.
func (r Request) WithParams(p map[string]string) Request {
	merged := maps.Clone(r.params)
	if merged == nil {
		merged = map[string]string{}
	}
	maps.Copy(merged, p)
	r.params = merged
	return r
}

// WithHeader returns a copy with the header replaced.
func (r Request) WithHeader(key, value string) Request {
	r.headers = r.headers.Clone()
	r.headers.Set(key, value)
	return r
}

// WithBody returns a copy with a new body.
func (r Request) WithBody(b []byte) Request {
	r.body = bytes.Clone(b)
	return r
}
