package focuslog

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"gitlab.com/tozd/go/errors"
)

// sentryFlushTimeout bounds how long Shutdown waits for buffered events.
const sentryFlushTimeout = 2 * time.Second

// newSentryHandler initialises the Sentry SDK and returns a handler forwarding
// warnings and errors. Errors and fatal records become Sentry issues.
// It returns a nil handler when no DSN is configured.
func newSentryHandler(cfg Config) (slog.Handler, func(), error) {
	if cfg.SentryDSN == "" {
		return nil, nil, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		EnableLogs:  true,
	}); err != nil {
		return nil, nil, errors.Errorf("initializing Sentry: %w", err)
	}

	handler := sentryslog.Option{
		EventLevel: []slog.Level{LevelError, LevelFatal},
		LogLevel:   []slog.Level{LevelWarn, LevelError, LevelFatal},
	}.NewSentryHandler(context.Background())

	flush := func() { sentry.Flush(sentryFlushTimeout) }
	return handler, flush, nil
}

// Shutdown flushes sinks that buffer records, such as Sentry. Call it before the process exits.
func Shutdown() {
	mu.RLock()
	p := current
	mu.RUnlock()

	if p != nil && p.flush != nil {
		p.flush()
	}
}
