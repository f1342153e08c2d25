package response

import "github.com/cockroachdb/errors"

// ErrInvalidWriterState is returned when a Writer step is called out of order.
var ErrInvalidWriterState = errors.New("invalid writer state")

// ErrEncode marks failures to encode a response body.
var ErrEncode = errors.New("unable to encode response body")

func wrapEncode(err error) error {
	return errors.Mark(errors.Wrap(err, "encode response"), ErrEncode)
}
