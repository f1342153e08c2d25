package dispatcher

import (
	"time"

	"github.com/shravanasati/relay/internal/response"
)

// Config holds dispatcher options.
type Config struct {
	// InvokeTimeout bounds each handler invocation. Zero means no timeout.
	InvokeTimeout time.Duration

	// ExposeFailures puts the handler's failure message in the 500 body.
	// When false the body is the generic reason phrase.
	ExposeFailures bool

	// DefaultMimeType is used for routes that declare none.
	DefaultMimeType string
}

// DefaultConfig returns the configuration New starts from.
func DefaultConfig() Config {
	return Config{
		InvokeTimeout:   0,
		ExposeFailures:  true,
		DefaultMimeType: response.MimeText,
	}
}

// WithInvokeTimeout returns a copy of the config with the invoke timeout set.
func (c Config) WithInvokeTimeout(timeout time.Duration) Config {
	c.InvokeTimeout = timeout
	return c
}

// WithExposeFailures returns a copy of the config with failure exposure set.
func (c Config) WithExposeFailures(expose bool) Config {
	c.ExposeFailures = expose
	return c
}

// WithDefaultMimeType returns a copy of the config with the default mime type set.
func (c Config) WithDefaultMimeType(mime string) Config {
	if mime != "" {
		c.DefaultMimeType = mime
	}
	return c
}
