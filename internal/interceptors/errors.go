package interceptors

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidOrigin is returned for trusted origins that are not
	// scheme://host[:port].
	ErrInvalidOrigin = errors.New("invalid origin")

	// ErrInvalidLimit is returned for non-positive rate or size limits.
	ErrInvalidLimit = errors.New("invalid limit")
)
