package traceback

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

const badKey = "!BADKEY"

// Local is a single variable binding recorded for a stack frame.
type Local struct {
	Name  string
	Value any
}

// localsError annotates an error with the variables of the function that recorded it.
type localsError struct {
	err      error
	function string
	locals   []Local
	stack    []uintptr
}

func (e *localsError) Error() string { return e.err.Error() }

func (e *localsError) Unwrap() error { return e.err }

// StackTrace returns the wrapped error's stack trace, or the one captured by WithLocals
// when the wrapped error has none.
func (e *localsError) StackTrace() []uintptr {
	if st := deepestStack(e.err); st != nil {
		return st
	}
	return e.stack
}

// Format keeps fmt verbs behaving like the wrapped error.
func (e *localsError) Format(s fmt.State, verb rune) {
	if f, ok := e.err.(fmt.Formatter); ok {
		f.Format(s, verb)
		return
	}
	fmt.Fprint(s, e.err.Error())
}

// WithLocals records variables of the calling function on err.
//
// Arguments follow the slog convention: alternating name/value pairs, or slog.Attr values.
// The bindings are copied, reassigning a variable afterwards does not change what is rendered.
// If err carries no stack trace one is captured at the caller. A nil err returns nil.
//
//	func handle(id int, payload map[string]any) error {
//		if err := store(payload); err != nil {
//			return traceback.WithLocals(err, "id", id, "payload", payload)
//		}
//		return nil
//	}
func WithLocals(err error, args ...any) error {
	if err == nil {
		return nil
	}

	pcs := make([]uintptr, 64)
	// skip [runtime.Callers, WithLocals]
	n := runtime.Callers(2, pcs)
	pcs = pcs[:n]

	function := ""
	if n > 0 {
		frame, _ := runtime.CallersFrames(pcs[:1]).Next()
		function = frame.Function
	}

	le := &localsError{
		err:      err,
		function: function,
		locals:   argsToLocals(args),
	}
	if deepestStack(err) == nil {
		le.stack = pcs
	}
	return le
}

func argsToLocals(args []any) []Local {
	locals := make([]Local, 0, len(args)/2+1)
	for len(args) > 0 {
		switch x := args[0].(type) {
		case slog.Attr:
			locals = append(locals, Local{Name: x.Key, Value: x.Value.Any()})
			args = args[1:]
		case string:
			if len(args) == 1 {
				locals = append(locals, Local{Name: badKey, Value: x})
				args = nil
				continue
			}
			locals = append(locals, Local{Name: x, Value: args[1]})
			args = args[2:]
		default:
			locals = append(locals, Local{Name: badKey, Value: x})
			args = args[1:]
		}
	}
	return locals
}

// annotations returns the locals recorded on err's chain, outermost wrapper first.
func annotations(err error) []*localsError {
	var out []*localsError
	for err != nil {
		if le, ok := err.(*localsError); ok {
			out = append(out, le)
		}
		err = unwrapOnce(err)
	}
	return out
}

func unwrapOnce(err error) error {
	switch x := err.(type) {
	case interface{ Unwrap() error }:
		return x.Unwrap()
	case interface{ Unwrap() []error }:
		if errs := x.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return nil
}

// funcName trims the import path from a fully qualified function name.
func funcName(function string) string {
	if function == "" {
		return "???"
	}
	if i := strings.LastIndex(function, "/"); i >= 0 {
		function = function[i+1:]
	}
	return function
}
