package dispatcher

import (
	"context"
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/invoke"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
	"go.uber.org/zap"
)

// terminal is the innermost pipeline stage. It never returns an error.
func (d *Dispatcher) terminal(ctx context.Context, req request.Request, key route.Key) (response.Response, error) {
	d.logger.Debug("passing request to route",
		zap.String("route", key.Identity()),
		zap.String("target", req.Target()),
	)

	handler, ok := d.routes.Lookup(key)
	if !ok {
		d.logger.Debug("route not found", zap.String("route", key.Identity()))
		return response.Status(response.StatusNotFound), nil
	}

	result, err := d.invoker.Invoke(ctx, handler, req.Params())
	if err != nil {
		var failure *invoke.InvocationFailure
		if !errors.As(err, &failure) {
			failure = &invoke.InvocationFailure{Handler: handler.Name(), Cause: err}
		}
		return d.fail(key, failure), nil
	}

	resp := d.normalize(result, key)
	if status := resp.StatusCode(); !status.Valid() {
		return d.fail(key, &invoke.InvocationFailure{
			Handler: handler.Name(),
			Cause:   errors.Newf("invalid status code %d", status),
		}), nil
	}
	return resp, nil
}

func (d *Dispatcher) fail(key route.Key, failure *invoke.InvocationFailure) response.Response {
	fields := []zap.Field{
		zap.String("route", key.Identity()),
		zap.String("handler", failure.Handler),
		zap.Error(failure.Cause),
	}
	if len(failure.Stack) > 0 {
		fields = append(fields, zap.ByteString("stack", failure.Stack))
	}
	d.logger.Error("handler failed", fields...)

	return d.serverError(failure)
}

func (d *Dispatcher) serverError(failure *invoke.InvocationFailure) response.Response {
	msg := failure.Message()
	if !d.config.ExposeFailures || msg == "" {
		return response.Status(response.StatusInternalServerError)
	}
	return response.Text(response.StatusInternalServerError, msg)
}

// normalize turns a handler's result into a response. Responses pass
// through untouched; everything else becomes a 200 whose body is the
// value's text, served with the route's mime type.
func (d *Dispatcher) normalize(v any, key route.Key) response.Response {
	mime := key.MimeType
	if mime == "" {
		mime = d.config.DefaultMimeType
	}
	ok := func(body []byte) response.Response {
		return response.Body(response.StatusOK, mime, body)
	}

	if isNil(v) {
		return ok(nil)
	}

	switch r := v.(type) {
	case response.Response:
		if r.IsZero() {
			return ok(nil)
		}
		return r
	case *response.Response:
		if r.IsZero() {
			return ok(nil)
		}
		return *r
	case []byte:
		return ok(r)
	case string:
		return ok([]byte(r))
	case fmt.Stringer:
		return ok([]byte(r.String()))
	default:
		return ok([]byte(fmt.Sprint(r)))
	}
}

// isNil also catches typed nils, such as a nil pointer returned as any.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
