package traceback

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"gitlab.com/tozd/go/errors"
)

const focusedHeader = "━━━ Local variables in your code ━━━"

// FocusedFormatter renders the complete trace without locals, then appends the locals
// of user-code frames only. Library frames stay one line each.
//
// Which paths count as user code is decided by IsUserCode, see LOGGER_USER_CODE_PATHS.
type FocusedFormatter struct {
	// Base renders the complete trace. It is called with showLocals set to false.
	Base TraceRenderer

	cfg    Config
	locals *LocalsRenderer
	header *color.Color
	frame  *color.Color
}

// NewFocusedFormatter returns a FocusedFormatter whose base trace is a StackRenderer.
func NewFocusedFormatter(cfg Config) *FocusedFormatter {
	cfg = cfg.normalized()
	return &FocusedFormatter{
		Base:   NewStackRenderer(cfg),
		cfg:    cfg,
		locals: NewLocalsRenderer(cfg),
		header: newColor(cfg.NoColor, color.Bold, color.FgCyan),
		frame:  newColor(cfg.NoColor, color.Bold, color.FgYellow),
	}
}

// Format writes the base trace and the focused locals section to w.
// Errors from Base are returned unchanged. Values that cannot be rendered become placeholders.
func (f *FocusedFormatter) Format(w io.Writer, info ExcInfo) error {
	if err := f.Base.Render(w, info, false); err != nil {
		return err
	}

	frames := UserFrames(info, f.cfg.MaxFrames)
	if len(frames) == 0 {
		return nil
	}

	ew := &errWriter{w: w}
	ew.line("\n" + f.header.Sprint(focusedHeader))
	for _, fr := range frames {
		ew.line("\n" + f.frame.Sprint(fmt.Sprintf("► %s:%d in %s()", fr.ShortPath(), fr.Line, fr.ShortFunction())))
		for _, l := range f.locals.RenderFrame(fr) {
			ew.line(l)
		}
	}
	if ew.err != nil {
		return errors.Errorf("writing focused locals: %w", ew.err)
	}
	return nil
}

// UserFrames returns the user-code frames among those a trace limited to maxFrames shows,
// outermost first.
func UserFrames(info ExcInfo, maxFrames int) []Frame {
	head, tail, _ := LimitFrames(CollectFrames(info), maxFrames)
	patterns := UserCodePaths()

	var out []Frame
	for _, group := range [][]Frame{head, tail} {
		for _, fr := range group {
			if matchAny(patterns, fr.File) {
				out = append(out, fr)
			}
		}
	}
	return out
}
