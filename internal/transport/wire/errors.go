package wire

import "github.com/cockroachdb/errors"

var (
	ErrIncorrectRequestLine        = errors.New("incorrect request line")
	ErrIncompleteRequest           = errors.New("incomplete request")
	ErrMalformedLine               = errors.New("line not terminated by CRLF")
	ErrHeaderTooLarge              = errors.New("request header too large")
	ErrInvalidHost                 = errors.New("exactly one host header is required")
	ErrConflictingFraming          = errors.New("both content-length and transfer-encoding are set")
	ErrInvalidContentLength        = errors.New("invalid content-length")
	ErrUnsupportedTransferEncoding = errors.New("unsupported transfer-encoding")
	ErrMalformedChunk              = errors.New("malformed chunk")
	ErrBodyTooLarge                = errors.New("request body too large")
)
