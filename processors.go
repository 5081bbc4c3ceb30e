package focuslog

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	slogformatter "github.com/samber/slog-formatter"
	slogmulti "github.com/samber/slog-multi"

	"github.com/dianlight/focuslog/redact"
	"github.com/dianlight/focuslog/traceback"
)

// Attribute keys added or consumed by the processor chain.
const (
	StackInfoKey = "stack_info"
	StackKey     = "stack"
	TimestampKey = "timestamp"
	RequestIDKey = "request_id"
	ModuleKey    = "module"
	FuncNameKey  = "func_name"
	LineNoKey    = "lineno"
)

// TimestampLayout formats the timestamp attribute in the local time zone.
const TimestampLayout = "2006-01-02T15:04:05-0700"

// processors returns the enrichment chain in the order records flow through it.
func processors(level slog.Leveler, hideSensitive bool) []slogmulti.Middleware {
	mdws := []slogmulti.Middleware{
		levelFilter(level),
		stackInfo(),
		timestamp(),
		requestID(),
		callsite(),
		normalizeText(),
	}
	if hideSensitive {
		mdws = append(mdws, redact.Middleware)
	}
	return mdws
}

func levelFilter(level slog.Leveler) slogmulti.Middleware {
	return slogmulti.NewEnabledInlineMiddleware(func(ctx context.Context, l slog.Level, next func(context.Context, slog.Level) bool) bool {
		return l >= level.Level() && next(ctx, l)
	})
}

// stackInfo replaces a true stack_info attribute with the stack of the logging call.
func stackInfo() slogmulti.Middleware {
	return slogmulti.NewHandleInlineMiddleware(func(ctx context.Context, r slog.Record, next func(context.Context, slog.Record) error) error {
		found, want := false, false
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == StackInfoKey {
				found = true
				v := a.Value.Resolve()
				want = v.Kind() == slog.KindBool && v.Bool()
				return false
			}
			return true
		})
		if !found {
			return next(ctx, r)
		}

		nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
		r.Attrs(func(a slog.Attr) bool {
			if a.Key != StackInfoKey {
				nr.AddAttrs(a)
			}
			return true
		})
		if want {
			nr.AddAttrs(slog.String(StackKey, callerStack(r.PC)))
		}
		return next(ctx, nr)
	})
}

// callerStack renders the current stack starting at the frame that logged pc.
func callerStack(pc uintptr) string {
	pcs := make([]uintptr, 128)
	n := runtime.Callers(1, pcs)
	pcs = pcs[:n]
	for i, p := range pcs {
		if p == pc {
			pcs = pcs[i:]
			break
		}
	}

	frames := traceback.CollectFrames(traceback.ExcInfo{Stack: pcs})
	lines := make([]string, len(frames))
	for i, f := range frames {
		lines[i] = fmt.Sprintf("%s:%d in %s", f.File, f.Line, f.Function)
	}
	return strings.Join(lines, "\n")
}

func timestamp() slogmulti.Middleware {
	return slogmulti.NewHandleInlineMiddleware(func(ctx context.Context, r slog.Record, next func(context.Context, slog.Record) error) error {
		t := r.Time
		if t.IsZero() {
			t = time.Now()
		}
		r = r.Clone()
		r.AddAttrs(slog.Time(TimestampKey, t))
		return next(ctx, r)
	})
}

type requestIDCtxKey struct{}

// ContextWithRequestID returns a context whose records carry id as request_id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

// RequestIDFromContext returns the request id stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDCtxKey{}).(string)
	return id, ok && id != ""
}

func requestID() slogmulti.Middleware {
	return func(next slog.Handler) slog.Handler {
		return &requestIDHandler{next: next}
	}
}

// requestIDHandler adds a request_id unless the record, the bound attributes
// or the context already provide one.
type requestIDHandler struct {
	next  slog.Handler
	bound bool
}

func (h *requestIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *requestIDHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.bound || hasAttr(r, RequestIDKey) {
		return h.next.Handle(ctx, r)
	}

	id, ok := RequestIDFromContext(ctx)
	if !ok {
		id = uuid.NewString()
	}
	r = r.Clone()
	r.AddAttrs(slog.String(RequestIDKey, id))
	return h.next.Handle(ctx, r)
}

func (h *requestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.bound
	for _, a := range attrs {
		if a.Key == RequestIDKey {
			bound = true
		}
	}
	return &requestIDHandler{next: h.next.WithAttrs(attrs), bound: bound}
}

func (h *requestIDHandler) WithGroup(name string) slog.Handler {
	return &requestIDHandler{next: h.next.WithGroup(name), bound: h.bound}
}

func hasAttr(r slog.Record, key string) bool {
	found := false
	r.Attrs(func(a slog.Attr) bool {
		found = a.Key == key
		return !found
	})
	return found
}

// callsite adds the package, function and line of the logging call.
func callsite() slogmulti.Middleware {
	return slogmulti.NewHandleInlineMiddleware(func(ctx context.Context, r slog.Record, next func(context.Context, slog.Record) error) error {
		if r.PC == 0 {
			return next(ctx, r)
		}
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		module, function := splitFunction(frame.Function)

		r = r.Clone()
		r.AddAttrs(
			slog.String(ModuleKey, module),
			slog.String(FuncNameKey, function),
			slog.Int(LineNoKey, frame.Line),
		)
		return next(ctx, r)
	})
}

// splitFunction splits "github.com/a/b.(*T).M" into "github.com/a/b" and "(*T).M".
func splitFunction(name string) (pkg, function string) {
	slash := strings.LastIndex(name, "/")
	dot := strings.Index(name[slash+1:], ".")
	if dot < 0 {
		return name, ""
	}
	dot += slash + 1
	return name[:dot], name[dot+1:]
}

// normalizeText formats timestamps and turns byte slices and invalid UTF-8 into valid strings.
func normalizeText() slogmulti.Middleware {
	formatters := slogformatter.NewFormatterHandler(
		slogformatter.TimeFormatter(TimestampLayout, time.Local),
		slogformatter.FormatByType(func(b []byte) slog.Value {
			return slog.StringValue(validUTF8(string(b)))
		}),
		slogformatter.FormatByKind(slog.KindString, func(v slog.Value) slog.Value {
			return slog.StringValue(validUTF8(v.String()))
		}),
	)
	message := slogmulti.NewHandleInlineMiddleware(func(ctx context.Context, r slog.Record, next func(context.Context, slog.Record) error) error {
		if !utf8.ValidString(r.Message) {
			r.Message = validUTF8(r.Message)
		}
		return next(ctx, r)
	})

	return func(next slog.Handler) slog.Handler {
		return formatters(message(next))
	}
}

func validUTF8(s string) string {
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}
