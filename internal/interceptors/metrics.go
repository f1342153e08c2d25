package interceptors

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
)

// Metrics records request counts and latencies in Prometheus.
type Metrics struct {
	base
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	known    func(route.Key) bool
}

// NewMetrics creates the collectors and registers them with reg. known
// reports whether a key is a registered route; keys it rejects are labelled
// "unmatched". With a nil known only 404 responses are collapsed.
func NewMetrics(reg prometheus.Registerer, known func(route.Key) bool) (*Metrics, error) {
	m := &Metrics{
		base:  base{name: "metrics", priority: PriorityMetrics},
		known: known,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Dispatched requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_request_duration_seconds",
			Help:    "Time spent dispatching a request.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Intercept(ctx context.Context, req request.Request, key route.Key, next chain.Next) (response.Response, error) {
	start := time.Now()
	resp, err := next(ctx, req, key)

	status := "error"
	if err == nil {
		status = strconv.Itoa(int(resp.StatusCode()))
	}
	label := m.routeLabel(key, status)
	m.requests.WithLabelValues(req.Method(), label, status).Inc()
	m.duration.WithLabelValues(req.Method(), label).Observe(time.Since(start).Seconds())

	return resp, err
}

// routeLabel keeps label cardinality bounded by the registered routes.
// Unmatched requests carry their raw path as the key, whatever interceptor
// answers them.
func (m *Metrics) routeLabel(key route.Key, status string) string {
	if m.known != nil {
		if m.known(key) {
			return key.Path
		}
		return "unmatched"
	}
	if status == "404" {
		return "unmatched"
	}
	return key.Path
}
