package interceptors

import (
	"context"

	"github.com/hashicorp/go-uuid"
	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
)

const (
	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-Id"
	// RequestIDParam is the parameter name handlers can bind the ID with.
	RequestIDParam = "request_id"
)

// RequestID tags every request with an ID. An incoming X-Request-Id is
// reused; otherwise a UUID is generated. The ID is set on the request
// header, exposed as the request_id parameter, and echoed on the response.
type RequestID struct {
	base
	generate func() (string, error)
}

// NewRequestID creates the interceptor with UUID generation.
func NewRequestID() *RequestID {
	return &RequestID{
		base:     base{name: "request-id", priority: PriorityRequestID},
		generate: uuid.GenerateUUID,
	}
}

func (i *RequestID) Intercept(ctx context.Context, req request.Request, key route.Key, next chain.Next) (response.Response, error) {
	id := req.Header(RequestIDHeader)
	if id == "" {
		generated, err := i.generate()
		if err != nil {
			return response.Response{}, err
		}
		id = generated
	}

	// the parameter always carries the ID that is echoed back, whatever the
	// client sent as a query or form value
	req = req.WithHeader(RequestIDHeader, id).WithParam(RequestIDParam, id)

	resp, err := next(ctx, req, key)
	if err != nil {
		return resp, err
	}
	return resp.SetHeader(RequestIDHeader, id), nil
}
