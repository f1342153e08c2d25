// Package dispatcher runs requests through the interceptor pipeline and the
// terminal stage that resolves, invokes and normalizes the route handler.
package dispatcher

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/invoke"
	"github.com/shravanasati/relay/internal/reqctx"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
	"go.uber.org/zap"
)

// Routes is the read side of the route registry.
type Routes interface {
	Lookup(key route.Key) (*invoke.Descriptor, bool)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithConfig replaces the configuration.
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) {
		d.config = cfg
	}
}

// Dispatcher is safe for concurrent use. Its pipeline is built once, on
// the first Dispatch or on Warm, and never changes afterwards.
type Dispatcher struct {
	routes    Routes
	discovery chain.Discovery
	invoker   invoke.Invoker
	config    Config
	logger    *zap.Logger

	once         sync.Once
	pipeline     chain.Pipeline
	interceptors []chain.Interceptor
	buildErr     error
}

// New creates a dispatcher. discovery may be nil for a pipeline without
// interceptors.
func New(routes Routes, discovery chain.Discovery, opts ...Option) *Dispatcher {
	if routes == nil {
		panic("dispatcher: nil route registry")
	}
	d := &Dispatcher{
		routes:    routes,
		discovery: discovery,
		config:    DefaultConfig(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.config.DefaultMimeType == "" {
		d.config.DefaultMimeType = response.MimeText
	}
	d.invoker = invoke.Invoker{Timeout: d.config.InvokeTimeout}
	return d
}

// Dispatch runs req through the pipeline for key. Handler failures and
// unknown routes become error responses. Only interceptor errors are
// returned, marked with ErrInterceptor; interceptor panics are not
// recovered. The request scope is exited on every path.
func (d *Dispatcher) Dispatch(ctx context.Context, req request.Request, key route.Key) (response.Response, error) {
	pipeline, err := d.build()
	if err != nil {
		return response.Response{}, errors.Mark(err, ErrInterceptor)
	}

	ctx, scope := reqctx.Enter(ctx, req)
	defer scope.Exit()

	resp, err := pipeline(ctx, req, key)
	if err != nil {
		return resp, errors.Mark(err, ErrInterceptor)
	}
	return resp, nil
}

// Warm builds the pipeline now instead of on the first dispatch. A failed
// build is permanent: every later Dispatch returns the same error.
func (d *Dispatcher) Warm() error {
	_, err := d.build()
	return err
}

// Interceptors returns the interceptors in execution order, building the
// pipeline if needed.
func (d *Dispatcher) Interceptors() []chain.Interceptor {
	d.build()
	return append([]chain.Interceptor(nil), d.interceptors...)
}

// Config returns the effective configuration.
func (d *Dispatcher) Config() Config {
	return d.config
}

func (d *Dispatcher) build() (chain.Pipeline, error) {
	d.once.Do(func() {
		interceptors, err := d.discover()
		if err != nil {
			d.buildErr = err
			d.logger.Error("unable to build pipeline", zap.Error(err))
			return
		}
		d.interceptors = chain.Sorted(interceptors)
		d.pipeline = chain.Build(d.interceptors, d.terminal)

		d.logger.Debug("pipeline built",
			zap.Strings("interceptors", chain.Describe(d.interceptors)),
		)
	})
	return d.pipeline, d.buildErr
}

func (d *Dispatcher) discover() (found []chain.Interceptor, err error) {
	if d.discovery == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrPipeline, "interceptor discovery panicked: %v", r)
		}
	}()
	return d.discovery.Interceptors(), nil
}
