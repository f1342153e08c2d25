package chain

import (
	"context"
	"strconv"
	"testing"

	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = route.Key{Method: "GET", Path: "/t"}

func recorder(trace *[]string, name string, priority int) Interceptor {
	return NamedFunc(name, priority, func(ctx context.Context, req request.Request, key route.Key, next Next) (response.Response, error) {
		*trace = append(*trace, name+">")
		resp, err := next(ctx, req, key)
		*trace = append(*trace, "<"+name)
		return resp, err
	})
}

func terminal(trace *[]string) Next {
	return func(ctx context.Context, req request.Request, key route.Key) (response.Response, error) {
		*trace = append(*trace, "terminal")
		return response.Text(response.StatusOK, "done"), nil
	}
}

func TestBuildOrder(t *testing.T) {
	testCases := []struct {
		name       string
		priorities []int
		expected   []string
	}{
		{"already sorted", []int{1, 2, 3}, []string{"p1>", "p2>", "p3>", "terminal", "<p3", "<p2", "<p1"}},
		{"reversed", []int{3, 2, 1}, []string{"p1>", "p2>", "p3>", "terminal", "<p3", "<p2", "<p1"}},
		{"negative", []int{0, -5, 10}, []string{"p-5>", "p0>", "p10>", "terminal", "<p10", "<p0", "<p-5"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var trace []string
			var interceptors []Interceptor
			for _, p := range tc.priorities {
				interceptors = append(interceptors, recorder(&trace, "p"+strconv.Itoa(p), p))
			}

			pipeline := Build(interceptors, terminal(&trace))
			resp, err := pipeline(context.Background(), request.New("GET", "/t"), testKey)
			require.NoError(t, err)
			assert.Equal(t, "done", string(resp.Body()))
			assert.Equal(t, tc.expected, trace)
		})
	}
}

func TestBuildStableForEqualPriorities(t *testing.T) {
	var trace []string
	interceptors := []Interceptor{
		recorder(&trace, "first", 5),
		recorder(&trace, "second", 5),
		recorder(&trace, "outer", 1),
		recorder(&trace, "third", 5),
	}

	pipeline := Build(interceptors, terminal(&trace))
	_, err := pipeline(context.Background(), request.New("GET", "/t"), testKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer>", "first>", "second>", "third>", "terminal", "<third", "<second", "<first", "<outer"}, trace)
}

func TestBuildEmptyReturnsTerminal(t *testing.T) {
	var trace []string
	pipeline := Build(nil, terminal(&trace))
	_, err := pipeline(context.Background(), request.New("GET", "/t"), testKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"terminal"}, trace)

	trace = nil
	pipeline = Build([]Interceptor{nil, nil}, terminal(&trace))
	_, err = pipeline(context.Background(), request.New("GET", "/t"), testKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"terminal"}, trace)
}

func TestBuildPanicsWithoutTerminal(t *testing.T) {
	assert.Panics(t, func() { Build(nil, nil) })
}

func TestShortCircuit(t *testing.T) {
	var trace []string
	deny := NamedFunc("deny", 2, func(ctx context.Context, req request.Request, key route.Key, next Next) (response.Response, error) {
		trace = append(trace, "deny")
		return response.Status(response.StatusForbidden), nil
	})

	pipeline := Build([]Interceptor{recorder(&trace, "outer", 1), deny, recorder(&trace, "inner", 3)}, terminal(&trace))
	resp, err := pipeline(context.Background(), request.New("GET", "/t"), testKey)
	require.NoError(t, err)
	assert.Equal(t, response.StatusForbidden, resp.StatusCode())
	assert.Equal(t, []string{"outer>", "deny", "<outer"}, trace)
}

func TestInterceptorCanReplaceRequestAndKey(t *testing.T) {
	rewrite := Func(1, func(ctx context.Context, req request.Request, key route.Key, next Next) (response.Response, error) {
		key.Path = "/rewritten"
		return next(ctx, req.WithParam("added", "yes"), key)
	})

	var seenKey route.Key
	var seenReq request.Request
	term := func(ctx context.Context, req request.Request, key route.Key) (response.Response, error) {
		seenKey, seenReq = key, req
		return response.Empty(), nil
	}

	original := request.New("GET", "/t")
	_, err := Build([]Interceptor{rewrite}, term)(context.Background(), original, testKey)
	require.NoError(t, err)

	assert.Equal(t, "/rewritten", seenKey.Path)
	v, _ := seenReq.Param("added")
	assert.Equal(t, "yes", v)
	_, ok := original.Param("added")
	assert.False(t, ok)
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	var trace []string
	interceptors := []Interceptor{recorder(&trace, "b", 2), recorder(&trace, "a", 1)}
	Build(interceptors, terminal(&trace))
	assert.Equal(t, "b", Name(interceptors[0]))
}

func TestDescribe(t *testing.T) {
	var trace []string
	interceptors := []Interceptor{
		recorder(&trace, "logging", 20),
		recorder(&trace, "request-id", 10),
		Func(30, func(ctx context.Context, req request.Request, key route.Key, next Next) (response.Response, error) {
			return next(ctx, req, key)
		}),
	}
	assert.Equal(t, []string{"request-id@10", "logging@20", "func@30"}, Describe(interceptors))
}

type plain struct{}

func (plain) Priority() int { return 0 }
func (plain) Intercept(ctx context.Context, req request.Request, key route.Key, next Next) (response.Response, error) {
	return next(ctx, req, key)
}

func TestNameFallsBackToType(t *testing.T) {
	assert.Equal(t, "chain.plain", Name(plain{}))
}

func TestDiscovery(t *testing.T) {
	var trace []string
	a, b := recorder(&trace, "a", 1), recorder(&trace, "b", 2)

	s := Static{a, b}
	got := s.Interceptors()
	got[0] = nil
	assert.NotNil(t, s[0], "snapshot is independent")

	c := NewCatalog(a)
	c.Add(nil, b)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"a@1", "b@2"}, Describe(c.Interceptors()))
}
