// Package formatter defines how log events are serialized into bytes.
//
// It exposes three interfaces: Formatter, which returns a []byte,
// WriterFormatter, which writes directly to an io.Writer, and
// BufferFormatter, which appends to a caller-owned bytes.Buffer. Sinks
// check for the optional interfaces at construction time and prefer them
// when available, eliminating the intermediate byte slice allocation on
// the write path.
//
// Both built-in formatters (TextFormatter and JSONFormatter) implement
// all three interfaces. They use a pooled bytes.Buffer internally and rely
// on Go's Append-style functions (time.AppendFormat, strconv.AppendInt)
// to avoid per-call allocations.
//
// Buffers larger than 64 KiB are not returned to the pool to prevent
// a single large log line from permanently inflating memory usage.
package formatter
