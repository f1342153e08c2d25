package invoke

import (
	"context"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// binder converts a raw parameter to an argument. present is false when the
// parameter was not supplied at all.
type binder func(raw string, present bool) (reflect.Value, error)

var (
	contextType  = reflect.TypeFor[context.Context]()
	errorType    = reflect.TypeFor[error]()
	durationType = reflect.TypeFor[time.Duration]()
)

func binderFor(t reflect.Type) (binder, error) {
	if t == durationType {
		return scalar(t, func(raw string) (reflect.Value, error) {
			d, err := time.ParseDuration(raw)
			return reflect.ValueOf(d), err
		}), nil
	}

	switch t.Kind() {
	case reflect.String:
		return func(raw string, _ bool) (reflect.Value, error) {
			return reflect.ValueOf(raw).Convert(t), nil
		}, nil

	case reflect.Bool:
		return scalar(t, func(raw string) (reflect.Value, error) {
			b, err := strconv.ParseBool(raw)
			return reflect.ValueOf(b).Convert(t), err
		}), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar(t, func(raw string) (reflect.Value, error) {
			n, err := strconv.ParseInt(raw, 10, t.Bits())
			v := reflect.New(t).Elem()
			v.SetInt(n)
			return v, err
		}), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return scalar(t, func(raw string) (reflect.Value, error) {
			n, err := strconv.ParseUint(raw, 10, t.Bits())
			v := reflect.New(t).Elem()
			v.SetUint(n)
			return v, err
		}), nil

	case reflect.Float32, reflect.Float64:
		return scalar(t, func(raw string) (reflect.Value, error) {
			f, err := strconv.ParseFloat(raw, t.Bits())
			v := reflect.New(t).Elem()
			v.SetFloat(f)
			return v, err
		}), nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return func(raw string, present bool) (reflect.Value, error) {
				if !present {
					return reflect.Zero(t), nil
				}
				v := reflect.MakeSlice(t, 0, strings.Count(raw, ",")+1)
				if raw == "" {
					return v, nil
				}
				for part := range strings.SplitSeq(raw, ",") {
					v = reflect.Append(v, reflect.ValueOf(strings.TrimSpace(part)).Convert(t.Elem()))
				}
				return v, nil
			}, nil
		}

	case reflect.Pointer:
		if isScalar(t.Elem()) {
			inner, err := binderFor(t.Elem())
			if err != nil {
				return nil, err
			}
			return func(raw string, present bool) (reflect.Value, error) {
				if !present {
					return reflect.Zero(t), nil
				}
				v, err := inner(raw, present)
				if err != nil {
					return reflect.Value{}, err
				}
				p := reflect.New(t.Elem())
				p.Elem().Set(v)
				return p, nil
			}, nil
		}

	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Interface:
		return nil, errors.Wrapf(ErrSignature, "parameter type %s cannot be bound", t)
	}

	// maps, structs, non-string slices and the like arrive as JSON
	return func(raw string, present bool) (reflect.Value, error) {
		if !present || raw == "" {
			return reflect.Zero(t), nil
		}
		p := reflect.New(t)
		if err := json.Unmarshal([]byte(raw), p.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return p.Elem(), nil
	}, nil
}

// scalar treats a missing or empty value as the zero value and otherwise
// delegates to parse.
func scalar(t reflect.Type, parse func(string) (reflect.Value, error)) binder {
	return func(raw string, present bool) (reflect.Value, error) {
		if !present || raw == "" {
			return reflect.Zero(t), nil
		}
		v, err := parse(raw)
		if err != nil {
			return reflect.Value{}, unwrapNum(err)
		}
		return v, nil
	}
}

func isScalar(t reflect.Type) bool {
	if t == durationType {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// unwrapNum drops the strconv prefix, which repeats the raw value already
// carried by BindError.
func unwrapNum(err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return numErr.Err
	}
	return err
}
