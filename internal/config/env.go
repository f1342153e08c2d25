package config

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/interceptors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RELAY_"

// ApplyEnv overrides fields from environment variables read through lookup.
// Every malformed variable is reported, not just the first.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.str("SERVER_ADDRESS", &c.Server.Address)
	e.str("SERVER_ENGINE", &c.Server.Engine)
	e.duration("SERVER_READ_TIMEOUT", &c.Server.ReadTimeout)
	e.duration("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout)
	e.duration("SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	e.duration("SERVER_IDLE_TIMEOUT", &c.Server.IdleTimeout)
	e.size("SERVER_MAX_BODY_SIZE", &c.Server.MaxBodySize)
	e.str("SERVER_STATIC_DIR", &c.Server.StaticDir)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.str("LOG_FORMAT", &c.Log.Format)

	e.duration("DISPATCH_INVOKE_TIMEOUT", &c.Dispatch.InvokeTimeout)
	e.boolean("DISPATCH_EXPOSE_FAILURES", &c.Dispatch.ExposeFailures)
	e.str("DISPATCH_DEFAULT_MIME_TYPE", &c.Dispatch.DefaultMimeType)

	ic := &c.Interceptors
	e.boolean("REQUEST_ID", &ic.RequestID)
	e.boolean("LOGGING", &ic.Logging)
	e.boolean("CONSOLE", &ic.Console)
	e.boolean("METRICS", &ic.Metrics)

	if e.list("CORS_ORIGINS", &ic.CORS.AllowedOrigins) {
		ic.CORS.Enabled = true
	}
	if e.list("CORF_TRUSTED_ORIGINS", &ic.CORF.TrustedOrigins) {
		ic.CORF.Enabled = true
	}
	if e.float("RATE_RPS", &ic.RateLimit.RPS) {
		ic.RateLimit.Enabled = true
	}
	if e.integer("RATE_BURST", &ic.RateLimit.Burst) {
		ic.RateLimit.Enabled = true
	}
	if e.size("BODY_LIMIT", &ic.BodyLimit.Max) {
		ic.BodyLimit.Enabled = true
	}
	if v, ok := e.get("BASIC_AUTH_USERS"); ok {
		accounts, err := parseAccounts(v)
		if err != nil {
			e.fail("BASIC_AUTH_USERS", err)
		} else {
			ic.BasicAuth.Accounts = accounts
			ic.BasicAuth.Enabled = true
		}
	}
	e.str("BASIC_AUTH_REALM", &ic.BasicAuth.Realm)

	if len(e.problems) > 0 {
		return errors.Mark(errors.Newf("environment: %s", strings.Join(e.problems, "; ")), ErrInvalid)
	}
	return nil
}

// parseAccounts reads "user:pass,user2:pass2".
func parseAccounts(v string) ([]interceptors.Account, error) {
	var accounts []interceptors.Account
	for pair := range strings.SplitSeq(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		user, pass, ok := strings.Cut(pair, ":")
		if !ok || user == "" {
			return nil, errors.Newf("malformed account %q", pair)
		}
		accounts = append(accounts, interceptors.Account{Username: user, Password: pass})
	}
	return accounts, nil
}

type envReader struct {
	lookup   func(string) (string, bool)
	problems []string
}

func (e *envReader) get(name string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) fail(name string, err error) {
	e.problems = append(e.problems, EnvPrefix+name+": "+err.Error())
}

func (e *envReader) str(name string, dst *string) bool {
	v, ok := e.get(name)
	if ok {
		*dst = v
	}
	return ok
}

func (e *envReader) list(name string, dst *[]string) bool {
	v, ok := e.get(name)
	if !ok {
		return false
	}
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
	return true
}

func (e *envReader) boolean(name string, dst *bool) bool {
	v, ok := e.get(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, errors.Newf("invalid boolean %q", v))
		return false
	}
	*dst = b
	return true
}

func (e *envReader) integer(name string, dst *int) bool {
	v, ok := e.get(name)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, errors.Newf("invalid integer %q", v))
		return false
	}
	*dst = n
	return true
}

func (e *envReader) float(name string, dst *float64) bool {
	v, ok := e.get(name)
	if !ok {
		return false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(name, errors.Newf("invalid number %q", v))
		return false
	}
	*dst = f
	return true
}

func (e *envReader) duration(name string, dst *Duration) bool {
	v, ok := e.get(name)
	if !ok {
		return false
	}
	d, err := parseDuration(v)
	if err != nil {
		e.fail(name, err)
		return false
	}
	*dst = d
	return true
}

func (e *envReader) size(name string, dst *SizeBytes) bool {
	v, ok := e.get(name)
	if !ok {
		return false
	}
	s, err := parseSize(v)
	if err != nil {
		e.fail(name, err)
		return false
	}
	*dst = s
	return true
}
