package interceptors

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
)

// Account is a basic auth user.
type Account struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// UserParam is the parameter the authenticated username is exposed as.
const UserParam = "auth_user"

// BasicAuth requires HTTP basic credentials matching one of the accounts.
type BasicAuth struct {
	base
	realm    string
	accounts map[string]string
}

// NewBasicAuth creates the interceptor. An empty realm defaults to "Restricted".
func NewBasicAuth(realm string, accounts []Account) *BasicAuth {
	if realm == "" {
		realm = "Restricted"
	}
	m := make(map[string]string, len(accounts))
	for _, acc := range accounts {
		m[acc.Username] = acc.Password
	}
	return &BasicAuth{
		base:     base{name: "basic-auth", priority: PriorityAuth},
		realm:    realm,
		accounts: m,
	}
}

func (a *BasicAuth) Intercept(ctx context.Context, req request.Request, key route.Key, next chain.Next) (response.Response, error) {
	auth := req.Header("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return a.unauthorized(), nil
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return response.Text(response.StatusBadRequest, "Invalid authorization header"), nil
	}
	user, pass, ok := strings.Cut(string(payload), ":")
	if !ok {
		return response.Text(response.StatusBadRequest, "Invalid authorization header"), nil
	}

	expected, known := a.accounts[user]
	// compare even for unknown users so timing does not reveal them
	match := subtle.ConstantTimeCompare([]byte(expected), []byte(pass)) == 1
	if !known || !match {
		return a.unauthorized(), nil
	}

	return next(ctx, req.WithParam(UserParam, user), key)
}

func (a *BasicAuth) unauthorized() response.Response {
	return response.Status(response.StatusUnauthorized).
		SetHeader("WWW-Authenticate", `Basic realm="`+a.realm+`"`)
}
