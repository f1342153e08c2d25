// Package nethttp serves the dispatcher through net/http.
package nethttp

import (
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/headers"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/transport"
	"go.uber.org/zap"
)

// Handler adapts the dispatcher to an http.Handler. Bodies cut short by
// http.MaxBytesReader are answered with 413.
func Handler(routes transport.Resolver, d transport.Dispatcher, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	core := transport.NewCore(routes, d, logger)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			logger.Warn("failed to read request body", zap.Error(err))
			status := response.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = response.StatusPayloadTooLarge
			}
			write(w, response.Status(status), logger)
			return
		}

		resp := core.Serve(r.Context(), transport.Inbound{
			Method:     r.Method,
			Target:     r.URL.RequestURI(),
			Path:       r.URL.Path,
			RawQuery:   r.URL.RawQuery,
			Headers:    convertHeaders(r),
			Body:       body,
			RemoteAddr: r.RemoteAddr,
		})
		write(w, resp, logger)
	})
}

func convertHeaders(r *http.Request) *headers.Headers {
	h := headers.NewHeaders()
	for k, vs := range r.Header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	if r.Host != "" && !h.Has("host") {
		h.Set("host", r.Host)
	}
	return h
}

func write(w http.ResponseWriter, resp response.Response, logger *zap.Logger) {
	out := w.Header()
	for k, v := range resp.Headers().All() {
		out.Set(http.CanonicalHeaderKey(k), v)
	}
	w.WriteHeader(int(resp.StatusCode()))
	if body := resp.Body(); len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			logger.Debug("failed to write response body", zap.Error(err))
		}
	}
}
