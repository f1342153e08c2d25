// Package transport holds the engine-independent half of the HTTP adapters:
// route resolution, parameter extraction, dispatch and the 405 fallback.
package transport

import (
	"context"
	"strings"

	"github.com/shravanasati/relay/internal/headers"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
	"github.com/shravanasati/relay/internal/transport/params"
	"go.uber.org/zap"
)

// Resolver maps a concrete method and path to a registered route.
type Resolver interface {
	Resolve(method, path string) (route.Key, map[string]string, bool)
	Allowed(path string) []string
}

// Dispatcher runs a request through the interceptor pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, req request.Request, key route.Key) (response.Response, error)
}

// Inbound is a request as read off the wire by an engine adapter.
type Inbound struct {
	Method     string
	Target     string
	Path       string
	RawQuery   string
	Headers    *headers.Headers
	Body       []byte
	RemoteAddr string
}

// Core resolves and dispatches inbound requests.
type Core struct {
	routes     Resolver
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewCore creates a Core. A nil logger discards output.
func NewCore(routes Resolver, d Dispatcher, logger *zap.Logger) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Core{routes: routes, dispatcher: d, logger: logger}
}

// Serve dispatches in and always yields a response. Unmatched requests are
// dispatched under their literal method and path so interceptors still see
// them. A 404 for a path that other methods serve becomes a 405 with an
// Allow header, keeping the headers interceptors set. The rewrite happens
// after the pipeline returns, so interceptors such as logging and metrics
// observe the 404 the dispatcher produced, not the 405 the client receives.
// Interceptor errors become a bare 500.
func (c *Core) Serve(ctx context.Context, in Inbound) response.Response {
	method := strings.ToUpper(in.Method)

	key, pathParams, matched := c.routes.Resolve(method, in.Path)
	if !matched {
		key = route.Key{Method: method, Path: in.Path}
	}

	target := in.Target
	if target == "" {
		target = in.Path
	}
	req := request.New(method, target,
		request.WithParams(params.FromQueryString(in.RawQuery, pathParams, in.Headers.Get("content-type"), in.Body)),
		request.WithHeaders(in.Headers),
		request.WithBody(in.Body),
		request.WithRemoteAddr(in.RemoteAddr),
	)

	resp, err := c.dispatcher.Dispatch(ctx, req, key)
	if err != nil {
		c.logger.Error("request failed",
			zap.String("method", method),
			zap.String("path", in.Path),
			zap.Error(err),
		)
		return response.Status(response.StatusInternalServerError)
	}

	if !matched && resp.StatusCode() == response.StatusNotFound {
		if allowed := c.routes.Allowed(in.Path); len(allowed) > 0 {
			return resp.WithStatusCode(response.StatusMethodNotAllowed).
				WithBody([]byte(response.StatusMethodNotAllowed.Reason())).
				SetHeader("allow", strings.Join(allowed, ", "))
		}
	}
	return resp
}
