package interceptors

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
)

var safeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}

func validateOrigin(o string) error {
	u, err := url.Parse(o)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "invalid origin %q", o), ErrInvalidOrigin)
	}
	if u.Scheme == "" {
		return errors.Wrapf(ErrInvalidOrigin, "%q: scheme is required", o)
	}
	if u.Host == "" {
		return errors.Wrapf(ErrInvalidOrigin, "%q: host is required", o)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return errors.Wrapf(ErrInvalidOrigin, "%q: path, query, and fragment are not allowed", o)
	}
	return nil
}

// CORF rejects cross-origin request forgery on unsafe methods, following
// the rules of net/http's CrossOriginProtection: trusted origins pass,
// then Sec-Fetch-Site decides, then Origin is compared with Host.
type CORF struct {
	base
	mu             sync.RWMutex
	trustedOrigins map[string]bool
	deny           response.Response
}

// NewCORF validates the trusted origins.
func NewCORF(trustedOrigins ...string) (*CORF, error) {
	c := &CORF{
		base:           base{name: "corf", priority: PriorityCORF},
		trustedOrigins: make(map[string]bool),
		deny:           response.Status(response.StatusForbidden),
	}
	for _, o := range trustedOrigins {
		if err := c.AddTrustedOrigin(o); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddTrustedOrigin allows unsafe requests from origin.
func (c *CORF) AddTrustedOrigin(origin string) error {
	if err := validateOrigin(origin); err != nil {
		return err
	}
	c.mu.Lock()
	c.trustedOrigins[origin] = true
	c.mu.Unlock()
	return nil
}

// SetDenyResponse replaces the 403 sent for rejected requests.
func (c *CORF) SetDenyResponse(resp response.Response) {
	if resp.IsZero() {
		resp = response.Status(response.StatusForbidden)
	}
	c.mu.Lock()
	c.deny = resp
	c.mu.Unlock()
}

func (c *CORF) Intercept(ctx context.Context, req request.Request, key route.Key, next chain.Next) (response.Response, error) {
	if c.allowed(req) {
		return next(ctx, req, key)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deny, nil
}

func (c *CORF) allowed(req request.Request) bool {
	if slices.Contains(safeMethods, req.Method()) {
		return true
	}

	origin := req.Header("Origin")
	c.mu.RLock()
	trusted := origin != "" && c.trustedOrigins[origin]
	c.mu.RUnlock()
	if trusted {
		return true
	}

	if site := strings.ToLower(req.Header("Sec-Fetch-Site")); site != "" {
		return site == "same-origin" || site == "none"
	}

	if origin == "" {
		// not a browser request
		return true
	}

	o, err := url.Parse(origin)
	return err == nil && o.Host == req.Header("Host")
}
