// Package chain composes prioritized interceptors around a terminal stage.
//
// Order:
//   - interceptors are stable-sorted by ascending Priority;
//   - the lowest priority runs outermost, so Build([a, b], t) is a(b(t)).
package chain

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
)

// Next continues the pipeline with the given request and key.
type Next func(ctx context.Context, req request.Request, key route.Key) (response.Response, error)

// Pipeline is the composed chain. It has the same shape as Next.
type Pipeline = Next

// Interceptor wraps the rest of the pipeline. It may return its own response
// without calling next, pass a modified request or key to next, or rewrite
// the response next returns.
type Interceptor interface {
	Priority() int
	Intercept(ctx context.Context, req request.Request, key route.Key, next Next) (response.Response, error)
}

// Named is implemented by interceptors that report a name for diagnostics.
type Named interface {
	Name() string
}

// InterceptFunc is the function form of Interceptor.Intercept.
type InterceptFunc func(ctx context.Context, req request.Request, key route.Key, next Next) (response.Response, error)

type funcInterceptor struct {
	name     string
	priority int
	fn       InterceptFunc
}

func (f funcInterceptor) Priority() int { return f.priority }
func (f funcInterceptor) Name() string  { return f.name }

func (f funcInterceptor) Intercept(ctx context.Context, req request.Request, key route.Key, next Next) (response.Response, error) {
	return f.fn(ctx, req, key, next)
}

// Func adapts fn into an Interceptor with the given priority.
func Func(priority int, fn InterceptFunc) Interceptor {
	return funcInterceptor{name: "func", priority: priority, fn: fn}
}

// NamedFunc is like Func but also names the interceptor.
func NamedFunc(name string, priority int, fn InterceptFunc) Interceptor {
	return funcInterceptor{name: name, priority: priority, fn: fn}
}

// Sorted returns the non-nil interceptors in execution order. The input is
// not modified.
func Sorted(interceptors []Interceptor) []Interceptor {
	out := make([]Interceptor, 0, len(interceptors))
	for _, i := range interceptors {
		if i != nil {
			out = append(out, i)
		}
	}
	slices.SortStableFunc(out, func(a, b Interceptor) int {
		return cmp.Compare(a.Priority(), b.Priority())
	})
	return out
}

// Build folds interceptors around terminal. With no interceptors the
// terminal stage itself is returned.
func Build(interceptors []Interceptor, terminal Next) Pipeline {
	if terminal == nil {
		panic("chain: nil terminal stage")
	}
	sorted := Sorted(interceptors)

	p := terminal
	for i := len(sorted) - 1; i >= 0; i-- {
		p = wrap(sorted[i], p)
	}
	return p
}

func wrap(i Interceptor, next Next) Next {
	return func(ctx context.Context, req request.Request, key route.Key) (response.Response, error) {
		return i.Intercept(ctx, req, key, next)
	}
}

// Name returns the interceptor's name, or its type when it is not Named.
func Name(i Interceptor) string {
	if n, ok := i.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", i)
}

// Describe lists interceptors as name@priority in execution order.
func Describe(interceptors []Interceptor) []string {
	sorted := Sorted(interceptors)
	out := make([]string, len(sorted))
	for idx, i := range sorted {
		out[idx] = fmt.Sprintf("%s@%d", Name(i), i.Priority())
	}
	return out
}
