package traceback

import (
	"os"
	"strings"
)

// UserCodePathsEnv names the environment variable holding extra user-code patterns.
const UserCodePathsEnv = "LOGGER_USER_CODE_PATHS"

// DefaultUserCodePaths are always considered user code.
// $GOROOT/src is deliberately not covered: "src/" would match every standard library frame.
var DefaultUserCodePaths = []string{"focuslog", "cmd/", "app/", "_test.go"}

// UserCodePaths returns the default patterns extended by LOGGER_USER_CODE_PATHS.
// The environment is read on every call.
func UserCodePaths() []string {
	paths := make([]string, len(DefaultUserCodePaths))
	copy(paths, DefaultUserCodePaths)

	raw := os.Getenv(UserCodePathsEnv)
	if raw == "" {
		return paths
	}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// IsUserCode reports whether file contains any user-code pattern as a literal substring.
func IsUserCode(file string) bool {
	return matchAny(UserCodePaths(), file)
}

func matchAny(patterns []string, file string) bool {
	for _, p := range patterns {
		if strings.Contains(file, p) {
			return true
		}
	}
	return false
}
