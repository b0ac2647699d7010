package formatter

import (
	"bytes"
	"io"
	"maps"
	"slices"

	"github.com/philipp01105/pipelog/core"
)

// TextFormatter formats log events as human-readable text
type TextFormatter struct {
	Config
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(cfg Config) *TextFormatter {
	return &TextFormatter{Config: cfg}
}

// Format formats an event as text
func (f *TextFormatter) Format(event *core.Event) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	f.formatToBuffer(event, buf)

	// Copy buffer content to return
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// FormatTo formats an event and writes it directly to the writer
func (f *TextFormatter) FormatTo(event *core.Event, w io.Writer) error {
	buf := getBuffer()

	f.formatToBuffer(event, buf)

	_, err := w.Write(buf.Bytes())
	putBuffer(buf)
	return err
}

// FormatEvent formats an event as text into the given buffer (implements BufferFormatter).
func (f *TextFormatter) FormatEvent(event *core.Event, buf *bytes.Buffer) {
	f.formatToBuffer(event, buf)
}

// pre-formatted level strings to avoid multiple WriteString calls
var levelBrackets = [...]string{
	core.DebugLevel:     " [DEBUG] ",
	core.InfoLevel:      " [INFO] ",
	core.WarningLevel:   " [WARNING] ",
	core.ErrorLevel:     " [ERROR] ",
	core.ExceptionLevel: " [EXCEPTION] ",
}

var levelColors = [...]string{
	core.DebugLevel:     "\x1b[90m",
	core.InfoLevel:      "\x1b[36m",
	core.WarningLevel:   "\x1b[33m",
	core.ErrorLevel:     "\x1b[31m",
	core.ExceptionLevel: "\x1b[35m",
}

const colorReset = "\x1b[0m"

// formatToBuffer writes the formatted event into the given buffer
func (f *TextFormatter) formatToBuffer(event *core.Event, buf *bytes.Buffer) {
	appendTimestamp(buf, event, f.TimestampFormat)

	// Level - use pre-formatted string
	if event.Level.Valid() {
		if f.Color {
			buf.WriteString(levelColors[event.Level])
			buf.WriteString(levelBrackets[event.Level])
			buf.WriteString(colorReset)
		} else {
			buf.WriteString(levelBrackets[event.Level])
		}
	} else {
		buf.WriteString(" [UNKNOWN] ")
	}

	if event.Category != "" {
		buf.WriteByte('[')
		buf.WriteString(event.Category)
		buf.WriteString("] ")
	}

	buf.WriteString(event.Message)

	if event.Err != nil {
		buf.WriteString(" error=")
		buf.WriteString(event.Err.Error())
	}

	if event.Attrs != nil {
		for _, field := range event.Attrs.Fields {
			buf.WriteByte(' ')
			buf.WriteString(field.Key)
			buf.WriteByte('=')
			buf.Write(field.AppendValue(buf.AvailableBuffer()))
		}

		if !f.OmitTags && len(event.Attrs.Tags) > 0 {
			for _, k := range slices.Sorted(maps.Keys(event.Attrs.Tags)) {
				buf.WriteString(" #")
				buf.WriteString(k)
				buf.WriteByte('=')
				buf.WriteString(event.Attrs.Tags[k])
			}
		}
	}

	buf.WriteByte('\n')

	if !f.OmitStackTrace {
		if trace := event.StackTrace(); trace != "" {
			buf.WriteString(trace)
			if trace[len(trace)-1] != '\n' {
				buf.WriteByte('\n')
			}
		}
	}
}
