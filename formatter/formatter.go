package formatter

import (
	"bytes"
	"io"
	"sync"

	"github.com/philipp01105/pipelog/core"
)

// Formatter defines the interface for log formatters
type Formatter interface {
	// Format formats a log event into bytes
	Format(event *core.Event) ([]byte, error)
}

// WriterFormatter is an optional interface that formatters can implement
// to write directly to a writer without intermediate byte slice allocation.
type WriterFormatter interface {
	// FormatTo formats a log event and writes it directly to the writer
	FormatTo(event *core.Event, w io.Writer) error
}

// BufferFormatter is an optional interface that formatters can implement
// to format directly into a caller-provided buffer, avoiding internal
// buffer pool overhead.
type BufferFormatter interface {
	// FormatEvent formats a log event into the given buffer.
	FormatEvent(event *core.Event, buf *bytes.Buffer)
}

// Config holds common formatter configuration
type Config struct {
	// TimestampFormat specifies the time format. Empty uses the
	// pre-formatted timestamp carried by the event.
	TimestampFormat string
	// OmitTags drops the tag snapshot from the output
	OmitTags bool
	// OmitStackTrace drops attached stack traces from the output
	OmitStackTrace bool
	// Color wraps the level label in ANSI colour codes (text only)
	Color bool
}

// bufferPool is a pool of bytes.Buffer to reduce allocations
var bufferPool = &sync.Pool{
	New: func() any {
		b := new(bytes.Buffer)
		b.Grow(256)
		return b
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 64*1024 { // Don't keep very large buffers
		return
	}
	bufferPool.Put(buf)
}

// appendTimestamp writes the event time using layout, or the event's
// pre-formatted stamp when layout is empty.
func appendTimestamp(buf *bytes.Buffer, event *core.Event, layout string) {
	if event.Attrs == nil {
		return
	}
	if layout == "" && event.Attrs.TimeFormatted != "" {
		buf.WriteString(event.Attrs.TimeFormatted)
		return
	}
	if layout == "" {
		layout = core.DefaultTimestampLayout
	}
	buf.Write(event.Attrs.TimeUTC.AppendFormat(buf.AvailableBuffer(), layout))
}
