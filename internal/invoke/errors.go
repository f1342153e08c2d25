package invoke

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFunc is returned by Func when the handler is not a function value.
	ErrNotFunc = errors.New("invoke: handler is not a function")

	// ErrSignature is returned by Func when the handler's shape is not supported.
	ErrSignature = errors.New("invoke: unsupported handler signature")

	// ErrNilDescriptor is the cause of a failure to invoke a nil descriptor.
	ErrNilDescriptor = errors.New("invoke: nil descriptor")

	// ErrTimeout is the cause of a failure when the handler outlives Invoker.Timeout.
	ErrTimeout = errors.New("invoke: handler timed out")

	// ErrPanic marks causes built from non-error panic values.
	ErrPanic = errors.New("invoke: handler panicked")
)

// InvocationFailure is the only error Invoke returns. Cause is what the
// handler itself produced: its returned error, the recovered panic, a
// *BindError, or ErrTimeout.
type InvocationFailure struct {
	Handler string
	Cause   error
	// Stack is captured for panics only.
	Stack []byte
}

func (f *InvocationFailure) Error() string {
	return fmt.Sprintf("handler %s failed: %v", f.Handler, f.Cause)
}

func (f *InvocationFailure) Unwrap() error {
	return f.Cause
}

// Message returns the cause's message, or "" when there is no cause.
func (f *InvocationFailure) Message() string {
	if f.Cause == nil {
		return ""
	}
	return f.Cause.Error()
}

// BindError reports a parameter that could not be converted to the
// handler's argument type.
type BindError struct {
	Param string
	Value string
	Type  string
	Err   error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("cannot bind parameter %q (%q) to %s: %v", e.Param, e.Value, e.Type, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
