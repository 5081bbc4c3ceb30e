package traceback

import (
	"runtime"
	"strings"
)

// Frame is an immutable snapshot of one stack frame.
type Frame struct {
	File     string
	Line     int
	Function string
	Locals   []Local
}

// ShortFunction returns the function name without its import path.
func (f Frame) ShortFunction() string { return funcName(f.Function) }

// ShortPath keeps the last three segments of the file path.
func (f Frame) ShortPath() string { return shortPath(f.File) }

// CollectFrames resolves the stack of info into frames, outermost call first,
// and attaches the locals recorded with WithLocals to the frames that recorded them.
// An empty stack yields no frames.
func CollectFrames(info ExcInfo) []Frame {
	if len(info.Stack) == 0 {
		return nil
	}

	var frames []Frame
	callers := runtime.CallersFrames(info.Stack)
	for {
		rf, more := callers.Next()
		if rf.Function != "" || rf.File != "" {
			frames = append(frames, Frame{
				File:     rf.File,
				Line:     rf.Line,
				Function: rf.Function,
			})
		}
		if !more {
			break
		}
	}

	// runtime order is innermost first
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}

	attachLocals(frames, annotations(info.Value))
	return frames
}

// attachLocals pairs annotations (outermost first) with frames (outermost first) by function.
func attachLocals(frames []Frame, notes []*localsError) {
	used := make([]bool, len(notes))
	for i := range frames {
		for j, note := range notes {
			if used[j] || note.function != frames[i].Function {
				continue
			}
			used[j] = true
			frames[i].Locals = append([]Local(nil), note.locals...)
			break
		}
	}
}

// LimitFrames keeps the first max/2 and the last max-max/2 frames.
// hidden is the number of frames dropped in between. max <= 0 disables the limit.
func LimitFrames(frames []Frame, max int) (head, tail []Frame, hidden int) {
	if max <= 0 || len(frames) <= max {
		return frames, nil, 0
	}
	keep := max / 2
	return frames[:keep], frames[len(frames)-(max-keep):], len(frames) - max
}

func shortPath(file string) string {
	parts := strings.Split(file, "/")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	return strings.Join(parts, "/")
}
