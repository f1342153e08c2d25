package app

import (
	"context"
	"html/template"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/interceptors"
	"github.com/shravanasati/relay/internal/invoke"
	"github.com/shravanasati/relay/internal/reqctx"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
)

// ErrBoom is what GET /boom fails with.
var ErrBoom = errors.New("boom")

var welcomePage = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head><title>Welcome {{.Name}}</title></head>
<body>
<h1>Hello, {{.Name}}!</h1>
<p><strong>Request:</strong> {{.Method}} {{.Target}}</p>
<p><strong>Rendered at:</strong> {{.Timestamp}}</p>
</body>
</html>
`))

type builtin struct {
	key        route.Key
	name       string
	fn         any
	paramNames []string
}

var builtins = []builtin{
	{
		key:  route.Key{Method: "GET", Path: "/"},
		name: "index",
		fn:   func() response.Response { return response.Redirect(response.StatusFound, "/hello") },
	},
	{
		key:  route.Key{Method: "GET", Path: "/hello"},
		name: "hello",
		fn:   func() string { return "Hello, World!" },
	},
	{
		key:  route.Key{Method: "GET", Path: "/greet/:name"},
		name: "greet",
		fn: func(name string, shout bool) string {
			msg := "Hello, " + name + "!"
			if shout {
				msg = strings.ToUpper(msg)
			}
			return msg
		},
		paramNames: []string{"name", "shout"},
	},
	{
		key:  route.Key{Method: "GET", Path: "/welcome/:name", MimeType: response.MimeHTML},
		name: "welcome",
		fn: func(ctx context.Context, name string) (response.Response, error) {
			data := map[string]string{
				"Name":      name,
				"Timestamp": time.Now().Format("2006-01-02 15:04:05 MST"),
			}
			if req, ok := reqctx.Current(ctx); ok {
				data["Method"] = req.Method()
				data["Target"] = req.Target()
			}
			return response.Template(response.StatusOK, welcomePage, data)
		},
		paramNames: []string{"name"},
	},
	{
		key:  route.Key{Method: "POST", Path: "/sum", MimeType: response.MimeJSON},
		name: "sum",
		fn: func(a, b float64) (response.Response, error) {
			return response.JSON(response.StatusOK, map[string]float64{"sum": a + b})
		},
		paramNames: []string{"a", "b"},
	},
	{
		key:  route.Key{Method: "GET", Path: "/boom"},
		name: "boom",
		fn:   func() (string, error) { return "", ErrBoom },
	},
	{
		key:  route.Key{Method: "GET", Path: "/json", MimeType: response.MimeJSON},
		name: "json",
		fn: func(ctx context.Context, requestID string) (response.Response, error) {
			body := map[string]string{"message": "hello"}
			if req, ok := reqctx.Current(ctx); ok {
				body["method"] = req.Method()
				body["target"] = req.Target()
			}
			if requestID != "" {
				body["request_id"] = requestID
			}
			return response.JSON(response.StatusOK, body)
		},
		paramNames: []string{interceptors.RequestIDParam},
	},
}

// RegisterBuiltins adds the built-in demo routes.
func RegisterBuiltins(reg *route.Registry) error {
	for _, b := range builtins {
		d, err := invoke.Func(b.name, b.fn, b.paramNames...)
		if err != nil {
			return err
		}
		if err := reg.Register(b.key, d); err != nil {
			return err
		}
	}
	return nil
}
