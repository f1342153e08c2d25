package app

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/config"
	"github.com/shravanasati/relay/internal/interceptors"
	"github.com/shravanasati/relay/internal/route"
	"go.uber.org/zap"
)

// buildCatalog registers the interceptors enabled in cfg.
func buildCatalog(cfg config.InterceptorsConfig, logger *zap.Logger, reg prometheus.Registerer, routes *route.Registry, console io.Writer) (*chain.Catalog, error) {
	catalog := chain.NewCatalog()

	if cfg.RequestID {
		catalog.Add(interceptors.NewRequestID())
	}
	if cfg.Logging {
		catalog.Add(interceptors.NewLogging(logger.Named("access")))
	}
	if cfg.Console && console != nil {
		catalog.Add(interceptors.NewConsoleLogging(console))
	}
	if cfg.Metrics && reg != nil {
		m, err := interceptors.NewMetrics(reg, func(k route.Key) bool {
			_, ok := routes.Lookup(k)
			return ok
		})
		if err != nil {
			return nil, err
		}
		catalog.Add(m)
	}
	if cfg.CORS.Enabled {
		catalog.Add(interceptors.NewCORS(cfg.CORS.Options()))
	}
	if cfg.CORF.Enabled {
		c, err := interceptors.NewCORF(cfg.CORF.TrustedOrigins...)
		if err != nil {
			return nil, err
		}
		catalog.Add(c)
	}
	if cfg.RateLimit.Enabled {
		rl, err := interceptors.NewRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		if err != nil {
			return nil, err
		}
		catalog.Add(rl)
	}
	if cfg.BodyLimit.Enabled {
		bl, err := interceptors.NewBodyLimit(cfg.BodyLimit.Max.Int64())
		if err != nil {
			return nil, err
		}
		catalog.Add(bl)
	}
	if cfg.BasicAuth.Enabled {
		catalog.Add(interceptors.NewBasicAuth(cfg.BasicAuth.Realm, cfg.BasicAuth.Accounts))
	}

	logger.Debug("interceptors enabled", zap.Int("count", catalog.Len()))
	return catalog, nil
}
