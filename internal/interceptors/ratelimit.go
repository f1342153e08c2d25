package interceptors

import (
	"context"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
	"golang.org/x/time/rate"
)

// APIKeyHeader identifies a client for rate limiting when present.
const APIKeyHeader = "X-API-Key"

const idleLimiterTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit keeps one token bucket per client. Clients are identified by
// their API key header, falling back to the remote host.
type RateLimit struct {
	base
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
}

// NewRateLimit allows rps requests per second per client with the given burst.
func NewRateLimit(rps float64, burst int) (*RateLimit, error) {
	if rps <= 0 || burst <= 0 {
		return nil, errors.Wrapf(ErrInvalidLimit, "rate limit rps=%v burst=%d", rps, burst)
	}
	return &RateLimit{
		base:     base{name: "rate-limit", priority: PriorityRateLimit},
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}, nil
}

func (rl *RateLimit) Intercept(ctx context.Context, req request.Request, key route.Key, next chain.Next) (response.Response, error) {
	now := rl.now()
	r := rl.get(clientKey(req), now).ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		retry := int(math.Ceil(delay.Seconds()))
		return response.Status(response.StatusTooManyRequests).
			SetHeader("Retry-After", strconv.Itoa(retry)), nil
	}
	return next(ctx, req, key)
}

func (rl *RateLimit) get(client string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > idleLimiterTTL {
		for k, e := range rl.limiters {
			if now.Sub(e.lastSeen) > idleLimiterTTL {
				delete(rl.limiters, k)
			}
		}
		rl.lastSweep = now
	}

	e, ok := rl.limiters[client]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[client] = e
	}
	e.lastSeen = now
	return e.limiter
}

// clients returns the number of tracked clients.
func (rl *RateLimit) clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func clientKey(req request.Request) string {
	if k := req.Header(APIKeyHeader); k != "" {
		return "key:" + k
	}
	addr := req.RemoteAddr()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return "addr:" + addr
}
