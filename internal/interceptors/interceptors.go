// Package interceptors provides the standard interceptors: request IDs,
// logging, metrics, CORS, cross-origin request forgery protection, rate
// limiting, body size limits and basic auth.
package interceptors

// Standard priorities. Lower values run further out.
const (
	PriorityRequestID = 10
	PriorityLogging   = 20
	PriorityMetrics   = 30
	PriorityCORS      = 40
	PriorityCORF      = 50
	PriorityRateLimit = 60
	PriorityBodyLimit = 70
	PriorityAuth      = 80
)

// base supplies Name and Priority to the concrete interceptors.
type base struct {
	name     string
	priority int
}

func (b base) Name() string  { return b.name }
func (b base) Priority() int { return b.priority }
