// Package focuslog configures structured logging on top of log/slog with tracebacks
// that show local variables only for your own code.
//
// # Basic Usage
//
//	func main() {
//	    focuslog.MustInit()
//	    defer focuslog.Shutdown()
//
//	    logger := focuslog.GetLogger("billing")
//	    if err := run(); err != nil {
//	        logger.Exception("run failed", err)
//	    }
//	}
//
// Recovered panics are logged with traceback.FromPanic:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        logger.Exception("handler panicked", traceback.FromPanic(r))
//	    }
//	}()
//
// # Environment
//
//	IS_PROD                 "true" selects JSON lines, anything else the console (required)
//	LOG_LEVEL               trace, debug, info, notice, warn, warning, error, fatal (default info)
//	DEV_TRACEBACK_STYLE     focused (default) or rich
//	LOGGER_USER_CODE_PATHS  extra comma-separated user code path patterns
//	LOGGER_HIDE_SENSITIVE   mask values bound to keys such as password or token
//	SENTRY_DSN              production only: forward warnings and errors to Sentry
//	SENTRY_ENVIRONMENT      Sentry environment (default production)
//
// # Record Attributes
//
// Every record passes through the same chain before it is rendered: level filter,
// stack_info expansion, timestamp, request_id (kept when already present), call site
// (module, func_name, lineno) and UTF-8 normalization.
//
// In production the exception is rendered as a group:
//
//	{"level":"ERROR","msg":"run failed","exception":{"type":"*errors.fundamentalError",
//	 "message":"key not found","stacktrace":["/app/main.go:12 main.main", ...]},
//	 "timestamp":"2025-08-07T15:14:58+0200","request_id":"8f0c...","module":"main",
//	 "func_name":"main","lineno":14}
package focuslog
