// Package app wires configuration, routes, interceptors and the dispatcher
// into a runnable server.
package app

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/config"
	"github.com/shravanasati/relay/internal/dispatcher"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
	"github.com/shravanasati/relay/internal/static"
	"github.com/shravanasati/relay/internal/transport"
	"github.com/shravanasati/relay/internal/transport/fasthttpx"
	"github.com/shravanasati/relay/internal/transport/nethttp"
	"github.com/shravanasati/relay/internal/transport/wire"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

const (
	MetricsPath = "/metrics"
	HealthPath  = "/healthz"
	StaticRoute = "/static/*file"
)

// App is a configured dispatcher with everything it needs to serve.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	routes     *route.Registry
	dispatcher *dispatcher.Dispatcher
	metrics    *prometheus.Registry
	core       *transport.Core
}

// Option customizes New.
type Option func(*options)

type options struct {
	console io.Writer
	routes  func(*route.Registry) error
}

// WithConsole sets where the console request log writes. Defaults to stdout.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithRoutes registers extra routes after the built-in ones.
func WithRoutes(fn func(*route.Registry) error) Option {
	return func(o *options) { o.routes = fn }
}

// New builds the registry, interceptor catalog and dispatcher from cfg.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{console: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	routes := route.NewRegistry(route.WithLogger(logger.Named("routes")))
	if err := RegisterBuiltins(routes); err != nil {
		return nil, errors.Wrap(err, "registering built-in routes")
	}
	if dir := cfg.Server.StaticDir; dir != "" {
		key := route.Key{Method: "GET", Path: StaticRoute}
		if err := routes.Register(key, static.Handler("static", "file", os.DirFS(dir))); err != nil {
			return nil, errors.Wrap(err, "registering static route")
		}
	}
	if o.routes != nil {
		if err := o.routes(routes); err != nil {
			return nil, errors.Wrap(err, "registering routes")
		}
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	catalog, err := buildCatalog(cfg.Interceptors, logger, metrics, routes, o.console)
	if err != nil {
		return nil, errors.Wrap(err, "building interceptors")
	}

	dcfg := dispatcher.DefaultConfig().
		WithInvokeTimeout(cfg.Dispatch.InvokeTimeout.Duration()).
		WithExposeFailures(cfg.Dispatch.ExposeFailures).
		WithDefaultMimeType(cfg.Dispatch.DefaultMimeType)
	d := dispatcher.New(routes, catalog,
		dispatcher.WithConfig(dcfg),
		dispatcher.WithLogger(logger.Named("dispatcher")),
	)
	if err := d.Warm(); err != nil {
		return nil, err
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		routes:     routes,
		dispatcher: d,
		metrics:    metrics,
		core:       transport.NewCore(routes, d, logger.Named("transport")),
	}, nil
}

func (a *App) Routes() *route.Registry { return a.routes }

func (a *App) Dispatcher() *dispatcher.Dispatcher { return a.dispatcher }

// Serve dispatches one request in-process, exactly as the servers do.
func (a *App) Serve(ctx context.Context, in transport.Inbound) response.Response {
	return a.core.Serve(ctx, in)
}

// HTTPHandler mounts the metrics and health endpoints next to the
// dispatcher for net/http.
func (a *App) HTTPHandler() http.Handler {
	r := mux.NewRouter()
	r.Handle(MetricsPath, promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc(HealthPath, healthz).Methods(http.MethodGet)
	dispatch := nethttp.Handler(a.routes, a.dispatcher, a.logger.Named("transport"))
	if limit := a.cfg.Server.MaxBodySize.Int64(); limit > 0 {
		dispatch = http.MaxBytesHandler(dispatch, limit)
	}
	r.PathPrefix("/").Handler(dispatch)
	return r
}

// FastHTTPHandler is HTTPHandler for fasthttp.
func (a *App) FastHTTPHandler() fasthttp.RequestHandler {
	metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	dispatch := fasthttpx.Handler(a.routes, a.dispatcher, a.logger.Named("transport"))

	return func(ctx *fasthttp.RequestCtx) {
		if ctx.IsGet() {
			switch string(ctx.Path()) {
			case MetricsPath:
				metrics(ctx)
				return
			case HealthPath:
				ctx.SetContentType("application/json")
				ctx.SetStatusCode(fasthttp.StatusOK)
				_, _ = ctx.WriteString(healthBody)
				return
			}
		}
		dispatch(ctx)
	}
}

// WireHandler is HTTPHandler for the built-in wire engine.
func (a *App) WireHandler() wire.Handler {
	return func(ctx context.Context, in transport.Inbound) response.Response {
		if in.Method == http.MethodGet {
			switch in.Path {
			case MetricsPath:
				return a.metricsResponse()
			case HealthPath:
				return response.Body(response.StatusOK, response.MimeJSON, []byte(healthBody))
			}
		}
		return a.core.Serve(ctx, in)
	}
}

func (a *App) metricsResponse() response.Response {
	families, err := a.metrics.Gather()
	if err != nil {
		a.logger.Error("gathering metrics", zap.Error(err))
		return response.Status(response.StatusInternalServerError)
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			a.logger.Error("encoding metrics", zap.Error(err))
			return response.Status(response.StatusInternalServerError)
		}
	}
	return response.Body(response.StatusOK, string(expfmt.FmtText), buf.Bytes())
}

const healthBody = `{"status":"ok"}`

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(healthBody))
}

// Run serves on the configured address with the configured engine until
// ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Address)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", a.cfg.Server.Address)
	}
	return a.RunListener(ctx, ln)
}

// RunListener is Run on an existing listener.
func (a *App) RunListener(ctx context.Context, ln net.Listener) error {
	var (
		serve    func() error
		shutdown func(context.Context) error
	)

	sc := a.cfg.Server
	switch sc.Engine {
	case config.EngineFastHTTP:
		srv := &fasthttp.Server{
			Handler:            a.FastHTTPHandler(),
			Name:               "relay",
			ReadTimeout:        sc.ReadTimeout.Duration(),
			WriteTimeout:       sc.WriteTimeout.Duration(),
			IdleTimeout:        sc.IdleTimeout.Duration(),
			MaxRequestBodySize: int(sc.MaxBodySize.Int64()),
		}
		serve = func() error { return srv.Serve(ln) }
		shutdown = func(context.Context) error { return srv.Shutdown() }
	case config.EngineWire:
		srv := wire.NewServer(a.WireHandler(), wire.Options{
			ReadTimeout:  sc.ReadTimeout.Duration(),
			WriteTimeout: sc.WriteTimeout.Duration(),
			IdleTimeout:  sc.IdleTimeout.Duration(),
			MaxBodySize:  sc.MaxBodySize.Int64(),
		}, a.logger.Named("wire"))
		serve = func() error { return srv.Serve(ln) }
		shutdown = srv.Shutdown
	default:
		srv := &http.Server{
			Handler:      a.HTTPHandler(),
			ReadTimeout:  sc.ReadTimeout.Duration(),
			WriteTimeout: sc.WriteTimeout.Duration(),
			IdleTimeout:  sc.IdleTimeout.Duration(),
		}
		serve = func() error { return srv.Serve(ln) }
		shutdown = srv.Shutdown
	}

	a.logger.Info("server listening",
		zap.String("address", ln.Addr().String()),
		zap.String("engine", a.cfg.Server.Engine),
		zap.Int("routes", a.routes.Len()),
		zap.Strings("interceptors", chain.Describe(a.dispatcher.Interceptors())),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve()
	}()

	select {
	case err := <-errCh:
		if isClosed(err) {
			return nil
		}
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	timeout := sc.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && !isClosed(err) {
		return errors.Wrap(err, "server stopped")
	}
	return nil
}

func isClosed(err error) bool {
	return err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed)
}
