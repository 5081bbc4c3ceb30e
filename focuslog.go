package focuslog

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"gitlab.com/tozd/go/errors"
)

// Custom log levels extending slog.Level
const (
	LevelTrace  slog.Level = -8
	LevelDebug  slog.Level = slog.LevelDebug
	LevelInfo   slog.Level = slog.LevelInfo
	LevelNotice slog.Level = 2
	LevelWarn   slog.Level = slog.LevelWarn
	LevelError  slog.Level = slog.LevelError
	LevelFatal  slog.Level = 12
)

// ExceptionKey is the attribute key under which Exception attaches the error.
const ExceptionKey = "exception"

// levelNames maps level strings to slog.Level values
var levelNames = map[string]slog.Level{
	"trace":    LevelTrace,
	"debug":    LevelDebug,
	"info":     LevelInfo,
	"notice":   LevelNotice,
	"warn":     LevelWarn,
	"warning":  LevelWarn, // alias for warn
	"error":    LevelError,
	"fatal":    LevelFatal,
	"critical": LevelFatal, // alias for fatal
}

// reverseLevelNames maps slog.Level values to canonical string names
var reverseLevelNames = map[slog.Level]string{
	LevelTrace:  "TRACE",
	LevelDebug:  "DEBUG",
	LevelInfo:   "INFO",
	LevelNotice: "NOTICE",
	LevelWarn:   "WARN",
	LevelError:  "ERROR",
	LevelFatal:  "FATAL",
}

var levelColorNumbers = map[string]uint8{
	"TRACE":  7,
	"DEBUG":  6,
	"INFO":   2,
	"NOTICE": 4,
	"WARN":   3,
	"ERROR":  1,
	"FATAL":  9,
}

var (
	programLevel = new(slog.LevelVar) // Info by default
	mu           sync.RWMutex         // protects current
	current      *pipeline
)

// pipeline is the installed handler chain and the hook flushing its sinks.
type pipeline struct {
	handler slog.Handler
	flush   func()
}

// activePipeline returns the pipeline installed by Init, or the plain console one.
func activePipeline() *pipeline {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return fallback
	}
	return current
}

var fallback = &pipeline{handler: fallbackHandler, flush: func() {}}

var fallbackHandler = tint.NewHandler(os.Stderr, &tint.Options{
	Level:       programLevel,
	NoColor:     !colorEnabled(os.Stderr),
	ReplaceAttr: replaceLogLevel,
})

// Logger wraps slog.Logger with the extra levels and Exception.
type Logger struct {
	*slog.Logger
}

// GetLogger returns a logger whose output follows the pipeline installed by Init,
// including when Init runs after GetLogger. A non-empty name is attached as "logger".
func GetLogger(name string) *Logger {
	var h slog.Handler = &lazyHandler{}
	if name != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("logger", name)})
	}
	return &Logger{Logger: slog.New(h)}
}

var defaultLogger = GetLogger("")

// lazyHandler follows the active pipeline and replays WithAttrs and WithGroup on it.
// The replayed chain is built once per installed pipeline.
type lazyHandler struct {
	ops    []func(slog.Handler) slog.Handler
	cached atomic.Pointer[resolvedHandler]
}

type resolvedHandler struct {
	from    *pipeline
	handler slog.Handler
}

func (h *lazyHandler) resolve() slog.Handler {
	p := activePipeline()
	if r := h.cached.Load(); r != nil && r.from == p {
		return r.handler
	}
	next := p.handler
	for _, op := range h.ops {
		next = op(next)
	}
	h.cached.Store(&resolvedHandler{from: p, handler: next})
	return next
}

func (h *lazyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.resolve().Enabled(ctx, level)
}

func (h *lazyHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h *lazyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *lazyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *lazyHandler) with(op func(slog.Handler) slog.Handler) *lazyHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &lazyHandler{ops: append(ops, op)}
}

// replaceLogLevel customizes the display names for custom log levels
func replaceLogLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if val, ok := a.Value.Any().(slog.Level); ok {
			if name, exists := reverseLevelNames[val]; exists {
				a.Value = slog.StringValue(name)
				a = tint.Attr(levelColorNumbers[name], a)
			}
		}
	}
	return a
}

// log is the low-level logging method for methods that take ...any.
// It must always be called directly by an exported logging method
// or function, because it uses a fixed call depth to obtain the pc.
func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}

func exceptionArgs(err error, args []any) []any {
	if err == nil {
		return args
	}
	return append([]any{slog.Any(ExceptionKey, err)}, args...)
}

// Exception logs msg at error level and renders err with its stack trace.
// A recovered panic is passed as traceback.FromPanic(r).
func (l *Logger) Exception(msg string, err error, args ...any) {
	l.log(context.Background(), LevelError, msg, exceptionArgs(err, args)...)
}

// ExceptionContext is Exception with a context.
func (l *Logger) ExceptionContext(ctx context.Context, msg string, err error, args ...any) {
	l.log(ctx, LevelError, msg, exceptionArgs(err, args)...)
}

// Trace logs a message at trace level
func (l *Logger) Trace(msg string, args ...any) {
	l.log(context.Background(), LevelTrace, msg, args...)
}

// TraceContext logs a message at trace level with context
func (l *Logger) TraceContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelTrace, msg, args...)
}

// Notice logs a message at notice level
func (l *Logger) Notice(msg string, args ...any) {
	l.log(context.Background(), LevelNotice, msg, args...)
}

// NoticeContext logs a message at notice level with context
func (l *Logger) NoticeContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelNotice, msg, args...)
}

// Fatal logs a message at fatal level and panics so deferred functions still run.
func (l *Logger) Fatal(msg string, args ...any) {
	l.log(context.Background(), LevelFatal, msg, args...)
	panic("Fatal log called, exiting program")
}

// Info logs a message at info level on the default logger.
func Info(msg string, args ...any) {
	defaultLogger.log(context.Background(), LevelInfo, msg, args...)
}

// Warn logs a message at warning level on the default logger.
func Warn(msg string, args ...any) {
	defaultLogger.log(context.Background(), LevelWarn, msg, args...)
}

// Error logs a message at error level on the default logger.
func Error(msg string, args ...any) {
	defaultLogger.log(context.Background(), LevelError, msg, args...)
}

// Exception logs msg and err with its stack trace on the default logger.
func Exception(msg string, err error, args ...any) {
	defaultLogger.log(context.Background(), LevelError, msg, exceptionArgs(err, args)...)
}

// SetLevel sets the minimum log level
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// GetLevel returns the current minimum log level
func GetLevel() slog.Level {
	return programLevel.Level()
}

// SetLevelFromString sets the log level from a string representation
// Supported levels: trace, debug, info, notice, warn/warning, error, fatal/critical
// The comparison is case-insensitive
func SetLevelFromString(levelStr string) error {
	if strings.TrimSpace(levelStr) == "" {
		return errors.New("log level cannot be empty")
	}

	level, exists := levelNames[strings.ToLower(strings.TrimSpace(levelStr))]
	if !exists {
		return errors.WithDetails(errors.New("invalid log level"), "level", levelStr)
	}
	programLevel.Set(level)
	return nil
}

// GetLevelString returns the current log level as a string
func GetLevelString() string {
	level := GetLevel()
	if name, exists := reverseLevelNames[level]; exists {
		return name
	}
	return level.String()
}
