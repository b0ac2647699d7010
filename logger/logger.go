package logger

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/philipp01105/pipelog/core"
	"github.com/philipp01105/pipelog/sink"
)

// Record is one log call as handed to Dispatch. Log sources use it to pass
// pre-supplied stack traces and a source identifier.
type Record struct {
	Level core.Level
	// Message is the final text, or a template when Args is non-empty
	Message string
	Args    []any
	Err     error
	// Attrs is taken over by the logger and stamped during enrichment
	Attrs  *core.Attributes
	Fields []core.Field
	// StackTrace is attached as-is when non-empty
	StackTrace string
	// Source identifies the producer, e.g. "slog" or "stdlog"
	Source string
}

// sinkList is shared between a Logger and the children created by With so
// that closing the parent detaches them all.
type sinkList struct {
	sinks  atomic.Pointer[[]sink.Sink]
	closed atomic.Bool
}

// Logger is the per-category logging front end. It is immutable after
// construction except for Close, which detaches it from its sinks.
type Logger struct {
	category string
	list     *sinkList
	fields   []core.Field
	time     *core.TimeSource
	tags     *core.TagRegistry
	diag     *zap.Logger
	caller   bool
}

// Builder provides a fluent API for building Logger instances
type Builder struct {
	category string
	sinks    []sink.Sink
	fields   []core.Field
	time     *core.TimeSource
	tags     *core.TagRegistry
	diag     *zap.Logger
	caller   bool
}

// NewBuilder creates a new logger builder for category
func NewBuilder(category string) *Builder {
	return &Builder{category: category}
}

// WithSinks sets the sinks, in delivery order
func (b *Builder) WithSinks(sinks ...sink.Sink) *Builder {
	b.sinks = sinks
	return b
}

// WithFields adds default fields to all log events
func (b *Builder) WithFields(fields ...core.Field) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// WithTimeSource sets the shared time source. Its owner goroutine is the
// one non thread-safe sinks accept calls from.
func (b *Builder) WithTimeSource(ts *core.TimeSource) *Builder {
	b.time = ts
	return b
}

// WithTags sets the tag registry snapshotted into every event
func (b *Builder) WithTags(tags *core.TagRegistry) *Builder {
	b.tags = tags
	return b
}

// WithDiagnostics sets the logger used to report dropped events and sink failures
func (b *Builder) WithDiagnostics(l *zap.Logger) *Builder {
	b.diag = l
	return b
}

// WithCaller adds a "caller" field (file:line of the log call) to events
// logged directly through the Logger
func (b *Builder) WithCaller(enabled bool) *Builder {
	b.caller = enabled
	return b
}

// Build creates the Logger instance
func (b *Builder) Build() *Logger {
	l := &Logger{
		category: b.category,
		list:     &sinkList{},
		fields:   b.fields,
		time:     b.time,
		tags:     b.tags,
		diag:     b.diag,
		caller:   b.caller,
	}
	if l.time == nil {
		l.time = core.NewTimeSource(core.TimeSourceConfig{})
	}
	if l.diag == nil {
		l.diag = zap.NewNop()
	}
	if len(b.sinks) > 0 {
		sinks := append([]sink.Sink(nil), b.sinks...)
		l.list.sinks.Store(&sinks)
	}
	return l
}

// Category returns the logger's category
func (l *Logger) Category() string {
	return l.category
}

// With creates a new Logger with additional fields (immutable operation).
// The child shares the parent's sinks and is detached when the parent closes.
func (l *Logger) With(fields ...core.Field) *Logger {
	newFields := make([]core.Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	child := *l
	child.fields = newFields
	return &child
}

// Dispatch delivers a record to every applicable sink.
func (l *Logger) Dispatch(r Record) {
	l.dispatch(&r, 2)
}

// dispatch runs the fan-out. skip is the number of frames between dispatch
// and the user's call site, used when a stack trace has to be captured.
func (l *Logger) dispatch(r *Record, skip int) {
	list := l.list.sinks.Load()
	if list == nil || len(*list) == 0 {
		return
	}

	var (
		ev      *core.Event
		owner   bool
		checked bool
	)
	for _, s := range *list {
		cfg := s.Configuration()
		if !cfg.IsThreadSafe && !cfg.DispatchToOwnerThread.Enabled {
			if !checked {
				owner = l.time.OnOwnerThread()
				checked = true
			}
			if !owner {
				l.diag.Warn("dropped event for non thread-safe sink",
					zap.String("sink", s.Kind()),
					zap.String("category", l.category),
					zap.Stringer("level", r.Level),
				)
				continue
			}
		}

		if !s.IsLevelEnabled(l.category, r.Level) {
			continue
		}

		if ev == nil {
			ev = l.enrich(r, skip)
		}

		if ev.Attrs.StackTrace == "" && s.RequiresStackTrace(l.category, r.Level) {
			next := *ev
			next.Attrs = ev.Attrs.WithStackTrace(core.CaptureStack(skip))
			ev = &next
		}

		l.deliver(s, ev)
	}
}

// enrich builds the shared event for r. It must be called from dispatch
// so that skip locates the call site.
func (l *Logger) enrich(r *Record, skip int) *core.Event {
	msg := r.Message
	if len(r.Args) > 0 {
		msg = fmt.Sprintf(r.Message, r.Args...)
	}

	attrs := r.Attrs
	if attrs == nil {
		attrs = core.NewAttributes()
	}
	withCaller := l.caller && r.Source == ""
	if n := len(l.fields) + len(r.Fields); n > 0 || r.Source != "" || withCaller {
		// Full slice expression so appends never write into a caller's array
		fields := attrs.Fields[:len(attrs.Fields):len(attrs.Fields)]
		fields = append(fields, l.fields...)
		fields = append(fields, r.Fields...)
		if r.Source != "" {
			fields = append(fields, core.String("source", r.Source))
		}
		if withCaller {
			// frames: GetCaller, enrich, dispatch, then skip more to the call site
			if c := core.GetCaller(skip + 2); c.Defined {
				fields = append(fields, core.String("caller", c.String()))
			}
		}
		attrs.Fields = fields
	}

	stamp := l.time.Now()
	attrs.TimeUTC = stamp.UTC
	attrs.TimeFormatted = stamp.Formatted
	attrs.Tags = l.tags.Snapshot()
	if r.StackTrace != "" {
		attrs.StackTrace = r.StackTrace
	}

	return &core.Event{
		Level:    r.Level,
		Category: l.category,
		Message:  msg,
		Attrs:    attrs,
		Err:      r.Err,
	}
}

// deliver hands ev to s, containing errors and panics.
func (l *Logger) deliver(s sink.Sink, ev *core.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			l.diag.Error("sink panicked",
				zap.String("sink", s.Kind()),
				zap.Any("panic", rec),
			)
		}
	}()
	if err := s.Log(ev); err != nil && !errors.Is(err, sink.ErrClosed) {
		l.diag.Warn("sink failed to log event",
			zap.String("sink", s.Kind()),
			zap.Error(err),
		)
	}
}

// Log logs a message at the given level with a caller-supplied attributes
// record, which the logger takes over.
func (l *Logger) Log(level core.Level, msg string, attrs *core.Attributes) {
	l.dispatch(&Record{Level: level, Message: msg, Attrs: attrs}, 2)
}

// Logf logs a formatted message at the given level
func (l *Logger) Logf(level core.Level, template string, args ...any) {
	l.dispatch(&Record{Level: level, Message: template, Args: args}, 2)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...core.Field) {
	l.dispatch(&Record{Level: core.DebugLevel, Message: msg, Fields: fields}, 2)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...core.Field) {
	l.dispatch(&Record{Level: core.InfoLevel, Message: msg, Fields: fields}, 2)
}

// Warning logs a warning message
func (l *Logger) Warning(msg string, fields ...core.Field) {
	l.dispatch(&Record{Level: core.WarningLevel, Message: msg, Fields: fields}, 2)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...core.Field) {
	l.dispatch(&Record{Level: core.ErrorLevel, Message: msg, Fields: fields}, 2)
}

// Exception logs err at ExceptionLevel using its text as the message
func (l *Logger) Exception(err error, fields ...core.Field) {
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	l.dispatch(&Record{Level: core.ExceptionLevel, Message: msg, Err: err, Fields: fields}, 2)
}

// Debugf logs a debug message with formatting
func (l *Logger) Debugf(format string, args ...any) {
	l.dispatch(&Record{Level: core.DebugLevel, Message: format, Args: args}, 2)
}

// Infof logs an info message with formatting
func (l *Logger) Infof(format string, args ...any) {
	l.dispatch(&Record{Level: core.InfoLevel, Message: format, Args: args}, 2)
}

// Warningf logs a warning message with formatting
func (l *Logger) Warningf(format string, args ...any) {
	l.dispatch(&Record{Level: core.WarningLevel, Message: format, Args: args}, 2)
}

// Errorf logs an error message with formatting
func (l *Logger) Errorf(format string, args ...any) {
	l.dispatch(&Record{Level: core.ErrorLevel, Message: format, Args: args}, 2)
}

// Close detaches the logger (and its children) from its sinks. Later
// calls are no-ops. The sinks themselves are owned by the pipeline and
// are not closed.
func (l *Logger) Close() error {
	l.list.closed.Store(true)
	l.list.sinks.Store(nil)
	return nil
}

// Closed reports whether Close was called
func (l *Logger) Closed() bool {
	return l.list.closed.Load()
}
