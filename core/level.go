package core

import "strings"

// Level represents the severity level of a log event
type Level int8

const (
	// DebugLevel for detailed debugging information
	DebugLevel Level = iota
	// InfoLevel for general informational messages
	InfoLevel
	// WarningLevel for conditions worth a look
	WarningLevel
	// ErrorLevel for failures
	ErrorLevel
	// ExceptionLevel for events carrying an error value
	ExceptionLevel
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarningLevel:
		return "WARNING"
	case ErrorLevel:
		return "ERROR"
	case ExceptionLevel:
		return "EXCEPTION"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= DebugLevel && l <= ExceptionLevel
}

// ParseLevel converts a string to a Level. The second return value is false
// when s does not name a level, in which case InfoLevel is returned.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DebugLevel, true
	case "INFO":
		return InfoLevel, true
	case "WARN", "WARNING":
		return WarningLevel, true
	case "ERROR":
		return ErrorLevel, true
	case "EXCEPTION":
		return ExceptionLevel, true
	default:
		return InfoLevel, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.String())), nil
}
