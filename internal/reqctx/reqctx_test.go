package reqctx

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shravanasati/relay/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterExit(t *testing.T) {
	req := request.New("GET", "/hello")

	ctx, scope := Enter(context.Background(), req)
	require.True(t, scope.Active())

	got, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, "/hello", got.Target())
	assert.Equal(t, "/hello", MustCurrent(ctx).Target())

	scope.Exit()
	assert.False(t, scope.Active())

	_, ok = Current(ctx)
	assert.False(t, ok)
	assert.Panics(t, func() { MustCurrent(ctx) })

	// idempotent
	scope.Exit()
	assert.False(t, scope.Active())
}

func TestCurrentOutsideScope(t *testing.T) {
	_, ok := Current(context.Background())
	assert.False(t, ok)

	var s *Scope
	assert.False(t, s.Active())
	s.Exit()
}

func TestDerivedContextsSeeExit(t *testing.T) {
	ctx, scope := Enter(context.Background(), request.New("GET", "/"))
	child, cancel := context.WithCancel(ctx)
	defer cancel()

	_, ok := Current(child)
	require.True(t, ok)

	scope.Exit()
	_, ok = Current(child)
	assert.False(t, ok)

	s, ok := FromContext(child)
	require.True(t, ok)
	assert.Equal(t, "/", s.Request().Target())
}

func TestNestedScopes(t *testing.T) {
	outerCtx, outer := Enter(context.Background(), request.New("GET", "/outer"))
	innerCtx, inner := Enter(outerCtx, request.New("GET", "/inner"))

	assert.Equal(t, "/inner", MustCurrent(innerCtx).Target())
	inner.Exit()
	_, ok := Current(innerCtx)
	assert.False(t, ok, "inner scope shadows the outer one")
	assert.Equal(t, "/outer", MustCurrent(outerCtx).Target())
	outer.Exit()
}

func TestConcurrentScopesAreIsolated(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target := fmt.Sprintf("/r/%d", i)
			ctx, scope := Enter(context.Background(), request.New("GET", target))
			defer scope.Exit()

			got, ok := Current(ctx)
			assert.True(t, ok)
			assert.Equal(t, target, got.Target())
		}()
	}
	wg.Wait()
}
