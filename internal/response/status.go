package response

import "net/http"

// StatusCode is an HTTP status code.
type StatusCode int

const (
	StatusOK        StatusCode = 200
	StatusCreated   StatusCode = 201
	StatusNoContent StatusCode = 204

	StatusMovedPermanently StatusCode = 301
	StatusFound            StatusCode = 302
	StatusNotModified      StatusCode = 304

	StatusBadRequest       StatusCode = 400
	StatusUnauthorized     StatusCode = 401
	StatusForbidden        StatusCode = 403
	StatusNotFound         StatusCode = 404
	StatusMethodNotAllowed StatusCode = 405
	StatusPayloadTooLarge  StatusCode = 413
	StatusTooManyRequests  StatusCode = 429

	StatusRequestHeaderFieldsTooLarge StatusCode = 431

	StatusInternalServerError StatusCode = 500
	StatusNotImplemented      StatusCode = 501
	StatusServiceUnavailable  StatusCode = 503
)

// Reason returns the reason phrase of the status code, or "" for unknown codes.
func (s StatusCode) Reason() string {
	return http.StatusText(int(s))
}

// Valid reports whether the code is in the 100-599 range.
func (s StatusCode) Valid() bool {
	return s >= 100 && s <= 599
}
