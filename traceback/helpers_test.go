package traceback_test

import (
	"runtime"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/dianlight/focuslog/traceback"
)

func myFunctionInUserCode(userID int, data map[string]any) error {
	processedData := map[string]any{"id": userID, "payload": data}
	var result any

	if err := anotherHelper(processedData); err != nil {
		return traceback.WithLocals(err, "user_id", userID, "data", data, "processed_data", processedData, "result", result)
	}
	return nil
}

func anotherHelper(info map[string]any) error {
	value, ok := info["missing_key"]
	if !ok {
		return traceback.WithLocals(errors.Errorf("key not found: %q", "missing_key"), "info", info, "value", value)
	}
	return nil
}

func recurse(n int) error {
	if n == 0 {
		return traceback.WithLocals(errors.New("bottom"), "n", n)
	}
	err := recurse(n - 1)
	return traceback.WithLocals(err, "n", n)
}

// repeatPanics panics inside the standard library.
func repeatPanics(count int) (info traceback.ExcInfo) {
	defer func() {
		if r := recover(); r != nil {
			info = traceback.FromPanic(r)
		}
	}()
	_ = strings.Repeat("x", count)
	return info
}

// libraryOnlyStack returns the current stack without any frame from a _test.go file.
func libraryOnlyStack() []uintptr {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(1, pcs)

	var out []uintptr
	for _, pc := range pcs[:n] {
		frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
		if !strings.HasSuffix(frame.File, "_test.go") {
			out = append(out, pc)
		}
	}
	return out
}

type hostile struct{}

func (hostile) String() string { panic("no string for you") }

type service struct{ name string }

func (s *service) run() {}
