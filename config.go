package focuslog

import (
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"gitlab.com/tozd/go/errors"
)

// ErrMissingEnvironment is returned by Init when a required environment variable is not set.
var ErrMissingEnvironment = errors.Base("missing required environment variable")

// TracebackStyle selects how errors are rendered in development.
type TracebackStyle string

const (
	// StyleFocused renders the base trace followed by the locals of user-code frames only.
	StyleFocused TracebackStyle = "focused"
	// StyleRich renders the base trace with the locals of every frame.
	StyleRich TracebackStyle = "rich"
)

// ParseTracebackStyle maps s to a TracebackStyle. Unknown values select StyleFocused.
func ParseTracebackStyle(s string) TracebackStyle {
	switch TracebackStyle(strings.ToLower(strings.TrimSpace(s))) {
	case StyleRich:
		return StyleRich
	default:
		return StyleFocused
	}
}

// Config is the logger configuration read from the environment.
type Config struct {
	// IsProd selects JSON output when "true" (case-insensitive) and console output otherwise.
	IsProd         string `env:"IS_PROD,required,notEmpty"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"INFO"`
	TracebackStyle string `env:"DEV_TRACEBACK_STYLE" envDefault:"focused"`
	// HideSensitive masks values bound to sensitive keys in attributes and rendered locals.
	HideSensitive     bool   `env:"LOGGER_HIDE_SENSITIVE" envDefault:"false"`
	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, configError(err)
	}
	return cfg, nil
}

// Production reports whether JSON output is selected.
func (c Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.IsProd), "true")
}

// Style returns the development traceback style.
func (c Config) Style() TracebackStyle {
	return ParseTracebackStyle(c.TracebackStyle)
}

// Level returns the configured level, INFO when unknown.
func (c Config) Level() slog.Level {
	if level, ok := levelNames[strings.ToLower(strings.TrimSpace(c.LogLevel))]; ok {
		return level
	}
	return LevelInfo
}

func configError(err error) error {
	var agg env.AggregateError
	if errors.As(err, &agg) {
		for _, e := range agg.Errors {
			switch e := e.(type) {
			case env.EnvVarIsNotSetError:
				return errors.Errorf("%w: %s", ErrMissingEnvironment, e.Key)
			case env.EmptyEnvVarError:
				return errors.Errorf("%w: %s", ErrMissingEnvironment, e.Key)
			}
		}
	}
	return errors.Errorf("reading logger configuration: %w", err)
}
