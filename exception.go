package focuslog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	slogformatter "github.com/samber/slog-formatter"
	"gitlab.com/tozd/go/errors"

	"github.com/dianlight/focuslog/traceback"
)

// exceptionHandler writes the log line through next and then the rendered
// traceback of the exception attribute, both under one lock.
type exceptionHandler struct {
	next      slog.Handler
	w         io.Writer
	formatter traceback.Formatter
	mu        *sync.Mutex
}

func newExceptionHandler(next slog.Handler, w io.Writer, formatter traceback.Formatter) *exceptionHandler {
	return &exceptionHandler{next: next, w: w, formatter: formatter, mu: &sync.Mutex{}}
}

func (h *exceptionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *exceptionHandler) Handle(ctx context.Context, r slog.Record) error {
	exc, found := exceptionOf(r)
	if found {
		nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
		r.Attrs(func(a slog.Attr) bool {
			if a.Key != ExceptionKey {
				nr.AddAttrs(a)
			}
			return true
		})
		r = nr
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if !found {
		return nil
	}
	return h.formatter.Format(h.w, excInfo(exc))
}

func (h *exceptionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &exceptionHandler{next: h.next.WithAttrs(attrs), w: h.w, formatter: h.formatter, mu: h.mu}
}

func (h *exceptionHandler) WithGroup(name string) slog.Handler {
	return &exceptionHandler{next: h.next.WithGroup(name), w: h.w, formatter: h.formatter, mu: h.mu}
}

func exceptionOf(r slog.Record) (exc error, found bool) {
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != ExceptionKey {
			return true
		}
		exc, found = a.Value.Any().(error)
		return !found
	})
	return exc, found
}

func excInfo(err error) traceback.ExcInfo {
	if info, ok := err.(traceback.ExcInfo); ok {
		return info
	}
	return traceback.FromError(err)
}

// ExceptionFormatter renders the exception attribute as a group with the error
// type, message, stack trace (outermost call first), details and cause.
//
// Example:
//
//	"exception": {
//	  "type": "*errors.fundamentalError",
//	  "message": "key not found",
//	  "stacktrace": ["/app/main.go:12 main.main", "/app/handler.go:40 main.lookup"],
//	  "details": {"key": "missing_key"}
//	}
func ExceptionFormatter() slogformatter.Formatter {
	return slogformatter.FormatByKey(ExceptionKey, func(v slog.Value) slog.Value {
		err, ok := v.Any().(error)
		if !ok {
			return v
		}
		info := excInfo(err)

		attrs := []slog.Attr{
			slog.String("type", info.Type),
			slog.String("message", info.Error()),
		}

		if frames := traceback.CollectFrames(info); len(frames) > 0 {
			stack := make([]string, len(frames))
			for i, f := range frames {
				stack[i] = fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function)
			}
			attrs = append(attrs, slog.Any("stacktrace", stack))
		}

		if details := errors.Details(info.Value); len(details) > 0 {
			keys := make([]string, 0, len(details))
			for k := range details {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			detailAttrs := make([]any, 0, len(keys))
			for _, k := range keys {
				detailAttrs = append(detailAttrs, slog.Any(k, details[k]))
			}
			attrs = append(attrs, slog.Group("details", detailAttrs...))
		}

		if cause := errors.Cause(info.Value); cause != nil && cause != info.Value {
			attrs = append(attrs, slog.String("cause", cause.Error()))
		}

		return slog.GroupValue(attrs...)
	})
}
