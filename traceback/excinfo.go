package traceback

import (
	"fmt"
	"reflect"
	"runtime"

	"gitlab.com/tozd/go/errors"
)

type stackTracer interface {
	StackTrace() []uintptr
}

// ExcInfo is the error being rendered together with the stack it was raised on.
type ExcInfo struct {
	// Type is the dynamic type of the outermost error, skipping locals annotations,
	// e.g. "*json.UnsupportedTypeError", or "*fmt.wrapError" once fmt.Errorf wrapped it.
	Type string
	// Value is the error as it was logged, including all wrappers.
	Value error
	// Stack holds program counters, innermost call first, as produced by runtime.Callers.
	Stack []uintptr
}

// FromError builds an ExcInfo from err, using the deepest stack trace found on its chain.
func FromError(err error) ExcInfo {
	if err == nil {
		return ExcInfo{}
	}
	return ExcInfo{
		Type:  errorType(err),
		Value: err,
		Stack: deepestStack(err),
	}
}

// FromPanic builds an ExcInfo for a recovered panic value.
// It must be called from the deferred function that recovered, so the captured stack
// still contains the panicking frames.
//
//	defer func() {
//		if r := recover(); r != nil {
//			logger.Exception("handler panicked", traceback.FromPanic(r))
//		}
//	}()
func FromPanic(r any) ExcInfo {
	pcs := make([]uintptr, 128)
	// skip [runtime.Callers, FromPanic]
	n := runtime.Callers(2, pcs)

	err, ok := r.(error)
	if !ok {
		err = errors.Base(fmt.Sprintf("panic: %v", r))
	}

	info := ExcInfo{
		Type:  errorType(err),
		Value: err,
		Stack: pcs[:n],
	}
	if !ok {
		info.Type = reflect.TypeOf(r).String()
	}
	return info
}

// Error lets an ExcInfo travel through APIs that expect an error.
func (i ExcInfo) Error() string {
	if i.Value == nil {
		return "<nil>"
	}
	return i.Value.Error()
}

func (i ExcInfo) Unwrap() error { return i.Value }

// StackTrace returns the captured stack.
func (i ExcInfo) StackTrace() []uintptr { return i.Stack }

// deepestStack returns the stack trace closest to where the error originated.
func deepestStack(err error) []uintptr {
	var stack []uintptr
	for err != nil {
		if le, ok := err.(*localsError); ok {
			if le.stack != nil {
				stack = le.stack
			}
		} else if st, ok := err.(stackTracer); ok {
			if s := st.StackTrace(); len(s) > 0 {
				stack = s
			}
		}
		err = unwrapOnce(err)
	}
	return stack
}

// errorType names the dynamic type of err, looking through locals annotations.
func errorType(err error) string {
	for {
		le, ok := err.(*localsError)
		if !ok {
			return reflect.TypeOf(err).String()
		}
		err = le.err
	}
}
