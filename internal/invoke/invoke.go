// Package invoke calls route handlers with named string parameters and
// turns every way a handler can fail into an *InvocationFailure.
package invoke

import (
	"context"
	"reflect"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
)

// Params are the named string parameters of one request.
type Params map[string]string

// Get returns the named parameter or "".
func (p Params) Get(name string) string {
	return p[name]
}

// Lookup returns the named parameter and whether it was supplied.
func (p Params) Lookup(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

// Descriptor is a registered handler with its parameter binding already
// resolved. It is immutable once built.
type Descriptor struct {
	name   string
	params []string
	call   func(ctx context.Context, params Params) (any, error)
}

// Name identifies the handler in logs and failures.
func (d *Descriptor) Name() string {
	if d == nil {
		return "<nil>"
	}
	return d.name
}

// ParamNames returns the parameter names the handler binds, in argument order.
func (d *Descriptor) ParamNames() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.params...)
}

func (d *Descriptor) String() string {
	return d.Name()
}

// Raw wraps a function that reads its parameters itself.
func Raw(name string, fn func(ctx context.Context, params Params) (any, error)) *Descriptor {
	return &Descriptor{name: name, call: fn}
}

// Func builds a descriptor from an arbitrary function. paramNames name the
// function's arguments in order, after an optional leading context.Context.
// The function may return nothing, a value, an error, or a value and an error.
func Func(name string, fn any, paramNames ...string) (*Descriptor, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, errors.Wrapf(ErrNotFunc, "handler %s is %T", name, fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, errors.Wrapf(ErrSignature, "handler %s is variadic", name)
	}

	withCtx := t.NumIn() > 0 && t.In(0) == contextType
	offset := 0
	if withCtx {
		offset = 1
	}
	if t.NumIn()-offset != len(paramNames) {
		return nil, errors.Wrapf(ErrSignature, "handler %s takes %d parameters, %d names given",
			name, t.NumIn()-offset, len(paramNames))
	}

	binders := make([]binder, len(paramNames))
	for i := range paramNames {
		b, err := binderFor(t.In(i + offset))
		if err != nil {
			return nil, errors.Wrapf(err, "handler %s parameter %q", name, paramNames[i])
		}
		binders[i] = b
	}

	returnsValue, returnsErr, err := outputs(t)
	if err != nil {
		return nil, errors.Wrapf(err, "handler %s", name)
	}

	names := append([]string(nil), paramNames...)
	call := func(ctx context.Context, params Params) (any, error) {
		args := make([]reflect.Value, 0, t.NumIn())
		if withCtx {
			if ctx == nil {
				ctx = context.Background()
			}
			args = append(args, reflect.ValueOf(&ctx).Elem())
		}
		for i, pn := range names {
			raw, present := params[pn]
			arg, err := binders[i](raw, present)
			if err != nil {
				return nil, &BindError{Param: pn, Value: raw, Type: t.In(i + offset).String(), Err: err}
			}
			args = append(args, arg)
		}

		out := v.Call(args)

		var result any
		if returnsValue {
			result = out[0].Interface()
		}
		if returnsErr {
			if e := out[len(out)-1]; !e.IsNil() {
				return nil, e.Interface().(error)
			}
		}
		return result, nil
	}

	return &Descriptor{name: name, params: names, call: call}, nil
}

// MustFunc is like Func but panics on an unsupported handler.
func MustFunc(name string, fn any, paramNames ...string) *Descriptor {
	d, err := Func(name, fn, paramNames...)
	if err != nil {
		panic(err)
	}
	return d
}

func outputs(t reflect.Type) (returnsValue, returnsErr bool, err error) {
	switch t.NumOut() {
	case 0:
		return false, false, nil
	case 1:
		if t.Out(0) == errorType {
			return false, true, nil
		}
		return true, false, nil
	case 2:
		if t.Out(1) != errorType {
			return false, false, errors.Wrapf(ErrSignature, "second result must be error, got %s", t.Out(1))
		}
		return true, true, nil
	default:
		return false, false, errors.Wrapf(ErrSignature, "%d results", t.NumOut())
	}
}

// Invoker runs descriptors. The zero value runs handlers inline with no
// time limit.
type Invoker struct {
	// Timeout bounds each invocation when positive. A handler that exceeds
	// it keeps running in its own goroutine; its result is discarded.
	Timeout time.Duration
}

// Invoke runs d with the zero Invoker.
func Invoke(ctx context.Context, d *Descriptor, params Params) (any, error) {
	return Invoker{}.Invoke(ctx, d, params)
}

// Invoke runs the handler with params. The returned error, if any, is always
// an *InvocationFailure.
func (iv Invoker) Invoke(ctx context.Context, d *Descriptor, params Params) (any, error) {
	if d == nil || d.call == nil {
		return nil, &InvocationFailure{Handler: d.Name(), Cause: ErrNilDescriptor}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if iv.Timeout <= 0 {
		return run(ctx, d, params)
	}

	ctx, cancel := context.WithTimeout(ctx, iv.Timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := run(ctx, d, params)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		cause := ctx.Err()
		if errors.Is(cause, context.DeadlineExceeded) {
			cause = ErrTimeout
		}
		return nil, &InvocationFailure{Handler: d.name, Cause: cause}
	}
}

func run(ctx context.Context, d *Descriptor, params Params) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			result = nil
			err = &InvocationFailure{Handler: d.name, Cause: panicCause(r), Stack: stack[:n]}
		}
	}()

	v, callErr := d.call(ctx, params)
	if callErr != nil {
		return nil, &InvocationFailure{Handler: d.name, Cause: callErr}
	}
	return v, nil
}

func panicCause(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errors.Mark(errors.Newf("%v", r), ErrPanic)
}
