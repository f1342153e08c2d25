// Package fasthttpx serves the dispatcher through fasthttp.
package fasthttpx

import (
	"bytes"
	"context"

	"github.com/shravanasati/relay/internal/headers"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/transport"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Handler adapts the dispatcher to a fasthttp.RequestHandler.
func Handler(routes transport.Resolver, d transport.Dispatcher, logger *zap.Logger) fasthttp.RequestHandler {
	core := transport.NewCore(routes, d, logger)

	return func(ctx *fasthttp.RequestCtx) {
		cctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hdr := headers.NewHeaders()
		ctx.Request.Header.VisitAll(func(k, v []byte) {
			hdr.Add(string(k), string(v))
		})

		resp := core.Serve(cctx, transport.Inbound{
			Method:     string(ctx.Method()),
			Target:     string(ctx.RequestURI()),
			Path:       string(ctx.Path()),
			RawQuery:   string(ctx.URI().QueryString()),
			Headers:    hdr,
			Body:       bytes.Clone(ctx.PostBody()),
			RemoteAddr: ctx.RemoteAddr().String(),
		})
		write(ctx, resp)
	}
}

func write(ctx *fasthttp.RequestCtx, resp response.Response) {
	ctx.SetStatusCode(int(resp.StatusCode()))
	ctx.Response.Header.SetNoDefaultContentType(true)
	for k, v := range resp.Headers().All() {
		switch k {
		case "content-length":
			// fasthttp derives it from the body
		case "content-type":
			ctx.SetContentType(v)
		default:
			ctx.Response.Header.Set(k, v)
		}
	}
	ctx.SetBody(resp.Body())
}
