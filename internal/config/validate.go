package config

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Server.Address) == "" {
		addf("server.address must not be empty")
	}
	switch c.Server.Engine {
	case EngineNetHTTP, EngineFastHTTP, EngineWire:
	default:
		addf("server.engine must be one of %q, %q or %q, got %q", EngineNetHTTP, EngineFastHTTP, EngineWire, c.Server.Engine)
	}
	if c.Server.ReadTimeout < 0 {
		addf("server.read_timeout must not be negative")
	}
	if c.Server.WriteTimeout < 0 {
		addf("server.write_timeout must not be negative")
	}
	if c.Server.ShutdownTimeout < 0 {
		addf("server.shutdown_timeout must not be negative")
	}
	if c.Server.IdleTimeout < 0 {
		addf("server.idle_timeout must not be negative")
	}
	if c.Server.MaxBodySize <= 0 {
		addf("server.max_body_size must be positive")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		addf("log.level %q is not a level", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		addf("log.format must be \"json\" or \"console\", got %q", c.Log.Format)
	}

	if c.Dispatch.InvokeTimeout < 0 {
		addf("dispatch.invoke_timeout must not be negative")
	}
	if strings.TrimSpace(c.Dispatch.DefaultMimeType) == "" {
		addf("dispatch.default_mime_type must not be empty")
	}

	ic := c.Interceptors
	if ic.CORF.Enabled && len(ic.CORF.TrustedOrigins) == 0 {
		addf("interceptors.corf.trusted_origins must not be empty when enabled")
	}
	if ic.RateLimit.Enabled {
		if ic.RateLimit.RPS <= 0 {
			addf("interceptors.rate_limit.rps must be positive")
		}
		if ic.RateLimit.Burst <= 0 {
			addf("interceptors.rate_limit.burst must be positive")
		}
	}
	if ic.BodyLimit.Enabled && ic.BodyLimit.Max <= 0 {
		addf("interceptors.body_limit.max must be positive")
	}
	if ic.BasicAuth.Enabled {
		if len(ic.BasicAuth.Accounts) == 0 {
			addf("interceptors.basic_auth.accounts must not be empty when enabled")
		}
		for i, acc := range ic.BasicAuth.Accounts {
			if acc.Username == "" {
				addf("interceptors.basic_auth.accounts[%d].username must not be empty", i)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.Mark(errors.Newf("invalid config:\n  %s", strings.Join(problems, "\n  ")), ErrInvalid)
}
