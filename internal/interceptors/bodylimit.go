package interceptors

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
)

// BodyLimit rejects requests whose body exceeds a size.
type BodyLimit struct {
	base
	max int64
}

// NewBodyLimit limits bodies to max bytes.
func NewBodyLimit(max int64) (*BodyLimit, error) {
	if max <= 0 {
		return nil, errors.Wrapf(ErrInvalidLimit, "body limit %d", max)
	}
	return &BodyLimit{base: base{name: "body-limit", priority: PriorityBodyLimit}, max: max}, nil
}

func (b *BodyLimit) Intercept(ctx context.Context, req request.Request, key route.Key, next chain.Next) (response.Response, error) {
	if int64(req.BodyLen()) > b.max {
		msg := fmt.Sprintf("request body exceeds %s", humanize.IBytes(uint64(b.max)))
		return response.Text(response.StatusPayloadTooLarge, msg), nil
	}
	return next(ctx, req, key)
}
