package core

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// CallerInfo contains information about a single frame
type CallerInfo struct {
	File      string
	ShortFile string
	Line      int
	Function  string
	Defined   bool
}

// String renders the frame as "file.go:line"
func (c CallerInfo) String() string {
	if !c.Defined {
		return ""
	}
	return c.ShortFile + ":" + strconv.Itoa(c.Line)
}

// GetCaller returns the frame skip levels above its caller
// (0 is the function calling GetCaller)
func GetCaller(skip int) CallerInfo {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return CallerInfo{}
	}

	fn := runtime.FuncForPC(pc)
	var funcName string
	if fn != nil {
		funcName = fn.Name()
	}

	return CallerInfo{
		File:      file,
		ShortFile: filepath.Base(file),
		Line:      line,
		Function:  funcName,
		Defined:   true,
	}
}

// maxStackDepth bounds the number of frames rendered by CaptureStack
const maxStackDepth = 32

// CaptureStack renders the calling goroutine's stack, skipping the given
// number of frames above CaptureStack itself. Each frame is rendered as
// "function\n\tfile:line".
func CaptureStack(skip int) string {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			b.WriteString(frame.Function)
			b.WriteString("\n\t")
			b.WriteString(frame.File)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(frame.Line))
			b.WriteByte('\n')
		}
		if !more {
			break
		}
	}
	return b.String()
}
