package interceptors

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/headers"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
)

// CORSOptions configures the CORS interceptor.
type CORSOptions struct {
	// AllowedOrigins lists the origins a cross-domain request can come from.
	// "*" allows every origin. An origin may contain one wildcard
	// (http://*.domain.com). Default is ["*"].
	AllowedOrigins []string

	// AllowOriginFunc validates the origin itself. When set, AllowedOrigins
	// is ignored.
	AllowOriginFunc func(req request.Request, origin string) bool

	// AllowedMethods defaults to the simple methods HEAD, GET and POST.
	AllowedMethods []string

	// AllowedHeaders lists the non simple headers clients may send. "*"
	// allows every header. "Origin" is always allowed.
	AllowedHeaders []string

	// ExposedHeaders lists the headers that are safe to expose to the client.
	ExposedHeaders []string

	AllowCredentials bool

	// MaxAge is how long, in seconds, preflight results may be cached.
	MaxAge int

	// OptionsPassthrough lets preflight requests continue down the chain
	// instead of being answered here.
	OptionsPassthrough bool
}

type wildcard struct {
	prefix string
	suffix string
}

func (w wildcard) match(s string) bool {
	return len(s) >= len(w.prefix)+len(w.suffix) && strings.HasPrefix(s, w.prefix) && strings.HasSuffix(s, w.suffix)
}

// CORS applies cross-origin resource sharing rules.
type CORS struct {
	base

	allowedOrigins  []string
	allowedWOrigins []wildcard
	allowOriginFunc func(req request.Request, origin string) bool
	allowedHeaders  []string
	allowedMethods  []string
	exposedHeaders  []string
	maxAge          int

	allowedOriginsAll bool
	allowedHeadersAll bool

	allowCredentials   bool
	optionsPassthrough bool
}

// NewCORS normalizes options into a CORS interceptor.
func NewCORS(options CORSOptions) *CORS {
	c := &CORS{
		base:               base{name: "cors", priority: PriorityCORS},
		exposedHeaders:     convert(options.ExposedHeaders, http.CanonicalHeaderKey),
		allowOriginFunc:    options.AllowOriginFunc,
		allowCredentials:   options.AllowCredentials,
		maxAge:             options.MaxAge,
		optionsPassthrough: options.OptionsPassthrough,
	}

	// origins and methods are matched case-insensitively
	if len(options.AllowedOrigins) == 0 {
		if options.AllowOriginFunc == nil {
			c.allowedOriginsAll = true
		}
	} else {
		for _, origin := range options.AllowedOrigins {
			origin = strings.ToLower(origin)
			if origin == "*" {
				c.allowedOriginsAll = true
				c.allowedOrigins = nil
				c.allowedWOrigins = nil
				break
			} else if i := strings.IndexByte(origin, '*'); i >= 0 {
				c.allowedWOrigins = append(c.allowedWOrigins, wildcard{origin[0:i], origin[i+1:]})
			} else {
				c.allowedOrigins = append(c.allowedOrigins, origin)
			}
		}
	}

	if len(options.AllowedHeaders) == 0 {
		c.allowedHeaders = []string{"Origin", "Accept", "Content-Type"}
	} else {
		// browsers always ask for Origin at preflight
		c.allowedHeaders = convert(append(slices.Clone(options.AllowedHeaders), "Origin"), http.CanonicalHeaderKey)
		if slices.Contains(options.AllowedHeaders, "*") {
			c.allowedHeadersAll = true
			c.allowedHeaders = nil
		}
	}

	if len(options.AllowedMethods) == 0 {
		c.allowedMethods = []string{"GET", "POST", "HEAD"}
	} else {
		c.allowedMethods = convert(options.AllowedMethods, strings.ToUpper)
	}

	return c
}

// AllowAllCORS allows every origin, the common methods and any header.
func AllowAllCORS() *CORS {
	return NewCORS(CORSOptions{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"DELETE", "HEAD", "GET", "POST", "PUT", "PATCH"},
		AllowedHeaders: []string{"*"},
	})
}

func (c *CORS) Intercept(ctx context.Context, req request.Request, key route.Key, next chain.Next) (response.Response, error) {
	origin := req.Header("Origin")

	if req.Method() == "OPTIONS" && req.Header("Access-Control-Request-Method") != "" && origin != "" {
		h := c.preflightHeaders(req)
		// preflights stop here; downstream interceptors such as auth would
		// reject them for lacking credentials
		resp := response.New(response.StatusNoContent)
		if c.optionsPassthrough {
			var err error
			resp, err = next(ctx, req, key)
			if err != nil {
				return resp, err
			}
		}
		for k, v := range h.All() {
			resp = resp.SetHeader(k, v)
		}
		return resp, nil
	}

	h := c.actualHeaders(req)
	resp, err := next(ctx, req, key)
	if err != nil {
		return resp, err
	}
	for k, v := range h.All() {
		resp = resp.SetHeader(k, v)
	}
	return resp, nil
}

func (c *CORS) preflightHeaders(req request.Request) *headers.Headers {
	h := headers.NewHeaders()
	origin := req.Header("Origin")

	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	if !c.isOriginAllowed(req, origin) {
		return h
	}
	reqMethod := req.Header("Access-Control-Request-Method")
	if !c.isMethodAllowed(reqMethod) {
		return h
	}
	reqHeaders := parseHeaderList(req.Header("Access-Control-Request-Headers"))
	if !c.areHeadersAllowed(reqHeaders) {
		return h
	}

	if c.allowedOriginsAll {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
	}
	// echoing the requested method and headers is enough
	h.Set("Access-Control-Allow-Methods", strings.ToUpper(reqMethod))
	if len(reqHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(reqHeaders, ", "))
	}
	if c.allowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.maxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.maxAge))
	}
	return h
}

func (c *CORS) actualHeaders(req request.Request) *headers.Headers {
	h := headers.NewHeaders()
	origin := req.Header("Origin")

	h.Add("Vary", "Origin")

	if origin == "" || !c.isOriginAllowed(req, origin) {
		return h
	}
	if !c.isMethodAllowed(req.Method()) {
		return h
	}

	if c.allowedOriginsAll {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
	}
	if len(c.exposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(c.exposedHeaders, ", "))
	}
	if c.allowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	return h
}

func (c *CORS) isOriginAllowed(req request.Request, origin string) bool {
	if c.allowOriginFunc != nil {
		return c.allowOriginFunc(req, origin)
	}
	if c.allowedOriginsAll {
		return true
	}
	origin = strings.ToLower(origin)
	if slices.Contains(c.allowedOrigins, origin) {
		return true
	}
	for _, w := range c.allowedWOrigins {
		if w.match(origin) {
			return true
		}
	}
	return false
}

func (c *CORS) isMethodAllowed(method string) bool {
	if len(c.allowedMethods) == 0 {
		return false
	}
	method = strings.ToUpper(method)
	if method == "OPTIONS" {
		return true
	}
	return slices.Contains(c.allowedMethods, method)
}

func (c *CORS) areHeadersAllowed(requested []string) bool {
	if c.allowedHeadersAll || len(requested) == 0 {
		return true
	}
	for _, h := range requested {
		if !slices.Contains(c.allowedHeaders, http.CanonicalHeaderKey(h)) {
			return false
		}
	}
	return true
}

func convert(s []string, f func(string) string) []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		out = append(out, f(v))
	}
	return out
}

// parseHeaderList splits a comma separated header list into canonical names.
func parseHeaderList(list string) []string {
	var out []string
	for part := range strings.SplitSeq(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, http.CanonicalHeaderKey(part))
		}
	}
	return out
}
