// Command example shows the focused and rich traceback styles.
//
//	go run ./example        # focused: locals for user code only
//	go run ./example rich   # rich: locals for every frame
package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/dianlight/focuslog"
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

// compileFilters panics inside the regexp package, so the stack mixes library and user frames.
func compileFilters(patterns []string) (info traceback.ExcInfo, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			info, failed = traceback.FromPanic(r), true
		}
	}()
	for _, p := range patterns {
		regexp.MustCompile(p)
	}
	return info, false
}

func main() {
	style := "focused"
	if len(os.Args) > 1 && strings.EqualFold(os.Args[1], "rich") {
		style = "rich"
	}
	fmt.Printf("Using: DEV_TRACEBACK_STYLE=%s\n\n", style)

	os.Setenv("IS_PROD", "false")
	os.Setenv("DEV_TRACEBACK_STYLE", style)
	os.Setenv(traceback.UserCodePathsEnv, "example/")

	focuslog.MustInit()
	defer focuslog.Shutdown()
	logger := focuslog.GetLogger("example")

	logger.Info("Test 1: Simple user code error")
	logger.Info(strings.Repeat("-", 50))
	if err := myFunctionInUserCode(42, map[string]any{"name": "test", "items": []int{1, 2, 3}}); err != nil {
		logger.Exception("KeyError in user code", err)
	}

	logger.Info("")
	logger.Info("Test 2: Error with library frames in the stack")
	logger.Info(strings.Repeat("-", 50))
	if info, failed := compileFilters([]string{`^user-\d+$`, `(unclosed`}); failed {
		logger.Exception("regexp panicked", info)
	}
}
