// Package reqctx makes the request being dispatched reachable from the
// context.Context threaded through interceptors and handlers.
package reqctx

import (
	"context"
	"sync/atomic"

	"github.com/shravanasati/relay/internal/request"
)

type scopeKey struct{}

// Scope holds the current request for one dispatch. Every Enter must be
// paired with exactly one Exit, normally deferred right after Enter.
type Scope struct {
	req    request.Request
	active atomic.Bool
}

// Enter opens a scope for req and returns a context that carries it.
func Enter(ctx context.Context, req request.Request) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Scope{req: req}
	s.active.Store(true)
	return context.WithValue(ctx, scopeKey{}, s), s
}

// Exit closes the scope. Afterwards Current reports no request for any
// context derived from it. Calling Exit twice is harmless.
func (s *Scope) Exit() {
	if s == nil {
		return
	}
	s.active.Store(false)
}

// Active reports whether the scope has not been exited yet.
func (s *Scope) Active() bool {
	return s != nil && s.active.Load()
}

// Request returns the scope's request regardless of whether it is active.
func (s *Scope) Request() request.Request {
	return s.req
}

// FromContext returns the innermost scope carried by ctx, active or not.
func FromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok
}

// Current returns the request of the active scope carried by ctx.
func Current(ctx context.Context) (request.Request, bool) {
	s, ok := FromContext(ctx)
	if !ok || !s.Active() {
		return request.Request{}, false
	}
	return s.req, true
}

// MustCurrent is like Current but panics outside an active scope.
func MustCurrent(ctx context.Context) request.Request {
	req, ok := Current(ctx)
	if !ok {
		panic("reqctx: no active request scope")
	}
	return req
}
