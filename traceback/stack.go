package traceback

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"gitlab.com/tozd/go/errors"
)

// Formatter renders an error and its stack to w.
type Formatter interface {
	Format(w io.Writer, info ExcInfo) error
}

// TraceRenderer renders the complete stack of an error, optionally with the locals of every frame.
type TraceRenderer interface {
	Render(w io.Writer, info ExcInfo, showLocals bool) error
}

// StackRenderer is the default TraceRenderer: a header rule, one entry per frame
// with its source line, then the error type and message.
type StackRenderer struct {
	cfg      Config
	locals   *LocalsRenderer
	rule     *color.Color
	path     *color.Color
	lineNo   *color.Color
	function *color.Color
	source   *color.Color
	excType  *color.Color
	printer  *pp.PrettyPrinter
	plain    *pp.PrettyPrinter
}

// NewStackRenderer returns a StackRenderer for cfg.
func NewStackRenderer(cfg Config) *StackRenderer {
	cfg = cfg.normalized()

	printer := pp.New()
	printer.SetColoringEnabled(!cfg.NoColor)
	plain := pp.New()
	plain.SetColoringEnabled(false)

	return &StackRenderer{
		cfg:      cfg,
		locals:   NewLocalsRenderer(cfg),
		rule:     newColor(cfg.NoColor, color.FgRed),
		path:     newColor(cfg.NoColor, color.FgGreen),
		lineNo:   newColor(cfg.NoColor, color.FgBlue),
		function: newColor(cfg.NoColor, color.FgHiWhite),
		source:   newColor(cfg.NoColor, color.Faint),
		excType:  newColor(cfg.NoColor, color.FgRed, color.Bold),
		printer:  printer,
		plain:    plain,
	}
}

// Render writes the full trace of info to w.
func (r *StackRenderer) Render(w io.Writer, info ExcInfo, showLocals bool) error {
	ew := &errWriter{w: w}
	frames := CollectFrames(info)
	head, tail, hidden := LimitFrames(frames, r.cfg.MaxFrames)
	sources := map[string][]string{}

	ew.line(r.rule.Sprint(centered(" Traceback (most recent call last) ", r.cfg.Width, '─')))
	for _, f := range head {
		r.frame(ew, f, sources, showLocals)
	}
	if hidden > 0 {
		ew.line(r.source.Sprintf("  ... %d frames hidden ...", hidden))
	}
	for _, f := range tail {
		r.frame(ew, f, sources, showLocals)
	}
	ew.line(r.rule.Sprint(strings.Repeat("─", r.cfg.Width)))

	ew.line(r.excType.Sprint(info.Type+":") + " " + info.Error())
	if details := errors.Details(info.Value); len(details) > 0 {
		keys := make([]string, 0, len(details))
		for k := range details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ew.line(fmt.Sprintf("  %s = %s", r.locals.name.Sprint(k), r.locals.value(Local{Name: k, Value: details[k]})))
		}
	}
	if cause := errors.Cause(info.Value); cause != nil && cause != info.Value {
		ew.line(r.excType.Sprint("Caused by: ") + cause.Error())
	}

	if ew.err != nil {
		return errors.Errorf("rendering traceback: %w", ew.err)
	}
	return nil
}

func (r *StackRenderer) frame(ew *errWriter, f Frame, sources map[string][]string, showLocals bool) {
	ew.line(fmt.Sprintf("  %s:%s in %s",
		r.path.Sprint(f.ShortPath()), r.lineNo.Sprint(f.Line), r.function.Sprint(f.ShortFunction())))

	if src := sourceLine(sources, f.File, f.Line); src != "" {
		ew.line("    " + r.source.Sprint(truncate(src, r.cfg.Width-4)))
	}

	if !showLocals {
		return
	}
	if len(f.Locals) == 0 {
		ew.line("  " + noLocals)
		return
	}
	for _, l := range f.Locals {
		ew.line(fmt.Sprintf("      %s = %s", r.locals.name.Sprint(l.Name), r.pretty(l)))
	}
}

// pretty renders l over possibly several lines, bounded like the focused section.
func (r *StackRenderer) pretty(l Local) (text string) {
	defer func() {
		if recover() != nil {
			text = reprFailed
		}
	}()

	v := l.Value
	if r.cfg.MaskSensitive {
		v = r.locals.maskValue(v, l.Name)
	}
	plain := r.plain.Sprint(v)
	if len([]rune(plain)) > r.cfg.LocalsMaxString {
		plain = truncate(plain, r.cfg.LocalsMaxString)
		return strings.ReplaceAll(plain, "\n", "\n        ")
	}
	return strings.ReplaceAll(r.printer.Sprint(v), "\n", "\n        ")
}

// RichFormatter renders the full trace with the locals of every frame.
type RichFormatter struct {
	Base TraceRenderer
}

// NewRichFormatter returns a RichFormatter using a StackRenderer for cfg.
func NewRichFormatter(cfg Config) *RichFormatter {
	return &RichFormatter{Base: NewStackRenderer(cfg)}
}

func (f *RichFormatter) Format(w io.Writer, info ExcInfo) error {
	return f.Base.Render(w, info, true)
}

func sourceLine(cache map[string][]string, file string, line int) string {
	lines, ok := cache[file]
	if !ok {
		data, err := os.ReadFile(file)
		if err == nil {
			lines = strings.Split(string(data), "\n")
		}
		cache[file] = lines
	}
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}

func centered(title string, width int, fill rune) string {
	pad := width - len([]rune(title))
	if pad <= 0 {
		return title
	}
	left := pad / 2
	return strings.Repeat(string(fill), left) + title + strings.Repeat(string(fill), pad-left)
}

// errWriter remembers the first write error and skips writes after it.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) line(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s+"\n")
}
