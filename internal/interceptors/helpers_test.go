package interceptors

import (
	"context"
	"testing"

	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
	"github.com/stretchr/testify/require"
)

var okKey = route.Key{Method: "GET", Path: "/ok"}

// okTerminal answers 200 "bar" and records the request it saw.
type okTerminal struct {
	calls int
	seen  request.Request
}

func (o *okTerminal) next(ctx context.Context, req request.Request, key route.Key) (response.Response, error) {
	o.calls++
	o.seen = req
	return response.Text(response.StatusOK, "bar"), nil
}

func run(t *testing.T, i chain.Interceptor, req request.Request) (response.Response, *okTerminal) {
	t.Helper()
	term := &okTerminal{}
	resp, err := chain.Build([]chain.Interceptor{i}, term.next)(context.Background(), req, okKey)
	require.NoError(t, err)
	return resp, term
}

func withHeaders(req request.Request, hs map[string]string) request.Request {
	for k, v := range hs {
		req = req.WithHeader(k, v)
	}
	return req
}
