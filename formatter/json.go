package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/philipp01105/pipelog/core"
)

// JSONFormatter renders one JSON object per event, newline terminated.
// Keys appear in a fixed order: time, level, category, message, error,
// fields in insertion order, tags sorted by key, stack_trace.
type JSONFormatter struct {
	Config
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(cfg Config) *JSONFormatter {
	if cfg.TimestampFormat == "" {
		cfg.TimestampFormat = time.RFC3339Nano
	}
	return &JSONFormatter{Config: cfg}
}

// Format returns the encoded event in a fresh slice.
func (f *JSONFormatter) Format(event *core.Event) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	f.FormatEvent(event, buf)
	return bytes.Clone(buf.Bytes()), nil
}

// FormatTo encodes the event into a pooled buffer and writes it to w.
func (f *JSONFormatter) FormatTo(event *core.Event, w io.Writer) error {
	buf := getBuffer()
	defer putBuffer(buf)

	f.FormatEvent(event, buf)
	_, err := w.Write(buf.Bytes())
	return err
}

// FormatEvent implements BufferFormatter.
func (f *JSONFormatter) FormatEvent(event *core.Event, buf *bytes.Buffer) {
	w := jsonObject{buf: buf}
	buf.WriteByte('{')

	w.key("time")
	buf.WriteByte('"')
	appendTimestamp(buf, event, f.TimestampFormat)
	buf.WriteByte('"')

	w.stringField("level", event.Level.String())
	if event.Category != "" {
		w.stringField("category", event.Category)
	}
	w.stringField("message", event.Message)
	if event.Err != nil && !carriesError(event) {
		w.stringField("error", event.Err.Error())
	}

	if attrs := event.Attrs; attrs != nil {
		for _, field := range attrs.Fields {
			w.key(field.Key)
			w.value(field)
		}

		if !f.OmitTags && len(attrs.Tags) > 0 {
			w.key("tags")
			tags := jsonObject{buf: buf}
			buf.WriteByte('{')
			for _, k := range slices.Sorted(maps.Keys(attrs.Tags)) {
				tags.stringField(k, attrs.Tags[k])
			}
			buf.WriteByte('}')
		}

		if !f.OmitStackTrace && attrs.StackTrace != "" {
			w.stringField("stack_trace", attrs.StackTrace)
		}
	}

	buf.WriteString("}\n")
}

// carriesError reports whether an "error" field already holds event.Err,
// so the key is written once.
func carriesError(event *core.Event) bool {
	f, ok := event.Attrs.Lookup("error")
	return ok && errors.Is(f.Err(), event.Err)
}

// jsonObject writes the members of one JSON object, inserting commas.
type jsonObject struct {
	buf *bytes.Buffer
	n   int
}

func (o *jsonObject) key(k string) {
	if o.n > 0 {
		o.buf.WriteByte(',')
	}
	o.n++
	o.quoted(k)
	o.buf.WriteByte(':')
}

func (o *jsonObject) stringField(k, v string) {
	o.key(k)
	o.quoted(v)
}

func (o *jsonObject) quoted(s string) {
	o.buf.WriteByte('"')
	appendJSONString(o.buf, s)
	o.buf.WriteByte('"')
}

func (o *jsonObject) value(field core.Field) {
	buf := o.buf
	switch field.Type {
	case core.StringType, core.ErrorType:
		o.quoted(field.Str)
	case core.IntType, core.Int64Type:
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), field.Int64, 10))
	case core.Uint64Type:
		buf.Write(strconv.AppendUint(buf.AvailableBuffer(), uint64(field.Int64), 10))
	case core.Float64Type:
		buf.Write(strconv.AppendFloat(buf.AvailableBuffer(), field.Float64, 'f', -1, 64))
	case core.BoolType:
		buf.Write(strconv.AppendBool(buf.AvailableBuffer(), field.Int64 == 1))
	case core.TimeType:
		buf.WriteByte('"')
		buf.Write(time.Unix(0, field.Int64).UTC().AppendFormat(buf.AvailableBuffer(), time.RFC3339Nano))
		buf.WriteByte('"')
	case core.DurationType:
		// nanoseconds, as zap and zerolog's default duration encoders do
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), field.Int64, 10))
	default:
		if raw, err := json.Marshal(field.Any); err == nil {
			buf.Write(raw)
			return
		}
		o.quoted(field.StringValue())
	}
}

// appendJSONString writes s JSON-escaped, without quotes.
func appendJSONString(buf *bytes.Buffer, s string) {
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			continue
		}
		buf.WriteString(s[start:i])
		switch c {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexChars[c>>4])
			buf.WriteByte(hexChars[c&0x0f])
		}
		start = i + 1
	}
	buf.WriteString(s[start:])
}

const hexChars = "0123456789abcdef"
