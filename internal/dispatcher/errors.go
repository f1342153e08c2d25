package dispatcher

import "github.com/cockroachdb/errors"

// ErrInterceptor marks errors returned by interceptors so outer layers can
// tell them apart from transport failures.
var ErrInterceptor = errors.New("dispatcher: interceptor failed")

// ErrPipeline is returned by every dispatch once building the pipeline has
// failed.
var ErrPipeline = errors.New("dispatcher: pipeline unavailable")

// IsInterceptorError reports whether err came out of the interceptor chain.
func IsInterceptorError(err error) bool {
	return errors.Is(err, ErrInterceptor)
}
