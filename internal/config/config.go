// Package config loads the server configuration from a YAML file, an
// optional .env file and RELAY_* environment variables, in that order.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/shravanasati/relay/internal/interceptors"
	"gopkg.in/yaml.v3"
)

const (
	EngineNetHTTP  = "nethttp"
	EngineFastHTTP = "fasthttp"
	// EngineWire is the built-in HTTP/1.1 server.
	EngineWire = "wire"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Dispatch     DispatchConfig     `yaml:"dispatch"`
	Interceptors InterceptorsConfig `yaml:"interceptors"`
}

type ServerConfig struct {
	Address         string   `yaml:"address"`
	Engine          string   `yaml:"engine"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	// IdleTimeout bounds how long a keep-alive connection waits for its
	// next request. Zero closes the connection after every response.
	IdleTimeout Duration `yaml:"idle_timeout"`
	// MaxBodySize caps request bodies read by the wire engine.
	MaxBodySize SizeBytes `yaml:"max_body_size"`
	// StaticDir is served under /static/ when set.
	StaticDir string `yaml:"static_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type DispatchConfig struct {
	InvokeTimeout   Duration `yaml:"invoke_timeout"`
	ExposeFailures  bool     `yaml:"expose_failures"`
	DefaultMimeType string   `yaml:"default_mime_type"`
}

type InterceptorsConfig struct {
	RequestID bool            `yaml:"request_id"`
	Logging   bool            `yaml:"logging"`
	Console   bool            `yaml:"console"`
	Metrics   bool            `yaml:"metrics"`
	CORS      CORSConfig      `yaml:"cors"`
	CORF      CORFConfig      `yaml:"corf"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	BodyLimit BodyLimitConfig `yaml:"body_limit"`
	BasicAuth BasicAuthConfig `yaml:"basic_auth"`
}

type CORSConfig struct {
	Enabled            bool     `yaml:"enabled"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	AllowedMethods     []string `yaml:"allowed_methods"`
	AllowedHeaders     []string `yaml:"allowed_headers"`
	ExposedHeaders     []string `yaml:"exposed_headers"`
	AllowCredentials   bool     `yaml:"allow_credentials"`
	MaxAge             int      `yaml:"max_age"`
	OptionsPassthrough bool     `yaml:"options_passthrough"`
}

// Options converts the section into interceptor options.
func (c CORSConfig) Options() interceptors.CORSOptions {
	return interceptors.CORSOptions{
		AllowedOrigins:     c.AllowedOrigins,
		AllowedMethods:     c.AllowedMethods,
		AllowedHeaders:     c.AllowedHeaders,
		ExposedHeaders:     c.ExposedHeaders,
		AllowCredentials:   c.AllowCredentials,
		MaxAge:             c.MaxAge,
		OptionsPassthrough: c.OptionsPassthrough,
	}
}

type CORFConfig struct {
	Enabled        bool     `yaml:"enabled"`
	TrustedOrigins []string `yaml:"trusted_origins"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type BodyLimitConfig struct {
	Enabled bool      `yaml:"enabled"`
	Max     SizeBytes `yaml:"max"`
}

type BasicAuthConfig struct {
	Enabled  bool                   `yaml:"enabled"`
	Realm    string                 `yaml:"realm"`
	Accounts []interceptors.Account `yaml:"accounts"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			Engine:          EngineNetHTTP,
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			MaxBodySize:     4 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Dispatch: DispatchConfig{
			ExposeFailures:  true,
			DefaultMimeType: "text/plain",
		},
		Interceptors: InterceptorsConfig{
			RequestID: true,
			Logging:   true,
			Metrics:   true,
			RateLimit: RateLimitConfig{RPS: 100, Burst: 200},
			BodyLimit: BodyLimitConfig{Max: 1 << 20},
		},
	}
}

// LoadFile parses a YAML file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are kept.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "loading %s", f)
		}
	}
	return nil
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then RELAY_* environment overrides.
// The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
