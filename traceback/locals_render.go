package traceback

import (
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/dianlight/focuslog/redact"
)

const (
	ellipsis        = "..."
	reprFailed      = "<repr failed>"
	noLocals        = "  (no local variables)"
	noRelevantLocal = "  (no relevant local variables)"
)

// selfNames are receiver-style bindings that never carry debugging value.
var selfNames = map[string]struct{}{"self": {}, "cls": {}}

// LocalsRenderer formats the locals of a single frame.
type LocalsRenderer struct {
	cfg  Config
	name *color.Color
}

// NewLocalsRenderer returns a renderer for cfg.
func NewLocalsRenderer(cfg Config) *LocalsRenderer {
	cfg = cfg.normalized()
	return &LocalsRenderer{
		cfg:  cfg,
		name: newColor(cfg.NoColor, color.FgGreen),
	}
}

// RenderFrame returns one line per relevant local of f, or a single marker line.
func (r *LocalsRenderer) RenderFrame(f Frame) []string {
	if len(f.Locals) == 0 {
		return []string{noLocals}
	}

	relevant := FilterLocals(f.Locals)
	if len(relevant) == 0 {
		return []string{noRelevantLocal}
	}

	lines := make([]string, 0, len(relevant))
	for _, l := range relevant {
		lines = append(lines, fmt.Sprintf("  %s = %s", r.name.Sprint(l.Name), r.value(l)))
	}
	return lines
}

func (r *LocalsRenderer) value(l Local) string {
	v := l.Value
	if r.cfg.MaskSensitive {
		v = r.maskValue(v, l.Name)
	}
	text, ok := Repr(v)
	if !ok {
		return reprFailed
	}
	return truncate(text, r.cfg.LocalsMaxString)
}

func (r *LocalsRenderer) maskValue(v any, name string) any {
	if redact.IsSensitiveKey(name) {
		return redact.Mask
	}
	return redact.Value(v, name)
}

// FilterLocals drops private names, receiver names and function values, keeping order.
func FilterLocals(locals []Local) []Local {
	out := make([]Local, 0, len(locals))
	for _, l := range locals {
		if len(l.Name) > 0 && l.Name[0] == '_' {
			continue
		}
		if _, ok := selfNames[l.Name]; ok {
			continue
		}
		if isCallable(l.Value) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Func
}

// truncate cuts s to max runes followed by an ellipsis.
func truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + ellipsis
}

func newColor(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}
