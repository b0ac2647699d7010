package logger

import (
	"github.com/philipp01105/pipelog/core"
)

// Level Re-export type and constants for convenience
type Level = core.Level

const (
	DebugLevel     = core.DebugLevel
	InfoLevel      = core.InfoLevel
	WarningLevel   = core.WarningLevel
	ErrorLevel     = core.ErrorLevel
	ExceptionLevel = core.ExceptionLevel
)

// ParseLevel converts a string to a Level, defaulting to InfoLevel
func ParseLevel(s string) Level {
	lvl, _ := core.ParseLevel(s)
	return lvl
}
