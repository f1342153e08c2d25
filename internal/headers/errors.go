package headers

import "github.com/cockroachdb/errors"

// ErrMalformedHeader is returned when a header line is malformed.
var ErrMalformedHeader = errors.New("malformed header line")
