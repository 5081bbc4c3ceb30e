package focuslog

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	slogformatter "github.com/samber/slog-formatter"
	slogmulti "github.com/samber/slog-multi"

	"github.com/dianlight/focuslog/traceback"
)

// Option configures Init.
type Option func(*options)

type options struct {
	writer io.Writer
	color  *bool
}

// WithWriter sends output to w instead of os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithColor forces ANSI colors on or off instead of detecting a terminal.
func WithColor(enabled bool) Option {
	return func(o *options) {
		o.color = &enabled
	}
}

// Init reads the configuration from the environment and installs the logging pipeline.
// IS_PROD must be set; when it is missing Init returns an error wrapping
// ErrMissingEnvironment and leaves the current pipeline untouched.
// Init is not safe to call concurrently with itself and should run before concurrent logging starts.
func Init(opts ...Option) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	return InitWithConfig(cfg, opts...)
}

// MustInit is like Init but panics on error.
func MustInit(opts ...Option) {
	if err := Init(opts...); err != nil {
		panic(err)
	}
}

// InitWithConfig installs the logging pipeline described by cfg.
func InitWithConfig(cfg Config, opts ...Option) error {
	if strings.TrimSpace(cfg.IsProd) == "" {
		return ErrMissingEnvironment
	}

	o := options{writer: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	useColor := colorEnabled(o.writer)
	if o.color != nil {
		useColor = *o.color
	}

	pp.SetDefaultOutput(o.writer)
	pp.Default.SetColoringEnabled(useColor)

	var (
		sink  slog.Handler
		flush func()
	)
	if cfg.Production() {
		sink, flush = productionSink(cfg, o.writer)
	} else {
		sink = consoleSink(cfg, o.writer, !useColor)
	}

	p := &pipeline{
		handler: slogmulti.Pipe(processors(programLevel, cfg.HideSensitive)...).Handler(sink),
		flush:   flush,
	}

	programLevel.Set(cfg.Level())
	mu.Lock()
	current = p
	mu.Unlock()

	slog.SetDefault(defaultLogger.Logger)
	return nil
}

// productionSink renders JSON lines with the exception as a structured group,
// fanned out to Sentry when a DSN is configured.
func productionSink(cfg Config, w io.Writer) (slog.Handler, func()) {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       LevelTrace,
		ReplaceAttr: replaceJSONAttr,
	})
	sink := slogformatter.NewFormatterHandler(ExceptionFormatter())(jsonHandler)

	sentryHandler, flush, err := newSentryHandler(cfg)
	if err != nil {
		slog.New(sink).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return sink, nil
	}
	if sentryHandler == nil {
		return sink, nil
	}
	return slogmulti.Fanout(sink, sentryHandler), flush
}

// consoleSink renders colored console lines followed by the traceback of the
// exception attribute in the configured development style.
func consoleSink(cfg Config, w io.Writer, noColor bool) slog.Handler {
	tcfg := traceback.Config{
		Width:           120,
		MaxFrames:       30,
		LocalsMaxString: 120,
		NoColor:         noColor,
		MaskSensitive:   cfg.HideSensitive,
	}

	var formatter traceback.Formatter
	switch cfg.Style() {
	case StyleRich:
		tcfg.LocalsMaxString = traceback.DefaultConfig().LocalsMaxString
		formatter = traceback.NewRichFormatter(tcfg)
	default:
		formatter = traceback.NewFocusedFormatter(tcfg)
	}

	console := tint.NewHandler(w, &tint.Options{
		Level:       LevelTrace,
		TimeFormat:  TimestampLayout,
		NoColor:     noColor,
		ReplaceAttr: replaceConsoleAttr,
	})
	return newExceptionHandler(console, w, formatter)
}

// replaceConsoleAttr drops the built-in time in favour of the timestamp attribute and names custom levels.
func replaceConsoleAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return replaceLogLevel(groups, a)
}

func replaceJSONAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.Attr{}
	case slog.LevelKey:
		if level, ok := a.Value.Any().(slog.Level); ok {
			if name, exists := reverseLevelNames[level]; exists {
				return slog.String(slog.LevelKey, name)
			}
		}
	}
	return a
}

// colorEnabled reports whether w is a terminal that can show colors.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
