package source

import (
	"context"
	"io"
	"log"
	"log/slog"
	"sync"

	"github.com/philipp01105/pipelog/core"
	"github.com/philipp01105/pipelog/logger"
)

// SlogHandler implements slog.Handler on top of an Ingester.
type SlogHandler struct {
	ingest Ingester
	level  slog.Leveler
	attrs  []core.Field
	group  string
}

// NewSlogHandler creates a slog.Handler that forwards records at or above
// level to ingest. A nil level accepts everything.
func NewSlogHandler(ingest Ingester, level slog.Leveler) *SlogHandler {
	if level == nil {
		level = slog.LevelDebug
	}
	return &SlogHandler{ingest: ingest, level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (s *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= s.level.Level()
}

// Handle converts the record and forwards it. An error-valued attribute
// named "err" or "error" becomes the record's error.
func (s *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	r := logger.Record{
		Level:   SlogLevel(record.Level),
		Message: record.Message,
		Source:  SlogName,
	}

	fields := make([]core.Field, 0, len(s.attrs)+record.NumAttrs())
	fields = append(fields, s.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		if r.Err == nil && (a.Key == "err" || a.Key == "error") {
			if err, ok := a.Value.Resolve().Any().(error); ok {
				r.Err = err
				return true
			}
		}
		fields = appendAttr(fields, s.group, a)
		return true
	})
	r.Fields = fields

	s.ingest(r)
	return nil
}

// WithAttrs returns a new SlogHandler with additional attributes.
func (s *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]core.Field, len(s.attrs), len(s.attrs)+len(attrs))
	copy(newAttrs, s.attrs)
	for _, a := range attrs {
		newAttrs = appendAttr(newAttrs, s.group, a)
	}
	return &SlogHandler{
		ingest: s.ingest,
		level:  s.level,
		attrs:  newAttrs,
		group:  s.group,
	}
}

// WithGroup returns a new SlogHandler with the given group name.
func (s *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	newGroup := name
	if s.group != "" {
		newGroup = s.group + "." + name
	}
	return &SlogHandler{
		ingest: s.ingest,
		level:  s.level,
		attrs:  s.attrs[:len(s.attrs):len(s.attrs)],
		group:  newGroup,
	}
}

// SlogLevel converts a slog.Level to a core.Level.
func SlogLevel(level slog.Level) core.Level {
	switch {
	case level >= slog.LevelError:
		return core.ErrorLevel
	case level >= slog.LevelWarn:
		return core.WarningLevel
	case level >= slog.LevelInfo:
		return core.InfoLevel
	default:
		return core.DebugLevel
	}
}

// appendAttr converts a, flattening groups into dotted keys.
func appendAttr(fields []core.Field, group string, a slog.Attr) []core.Field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}

	key := a.Key
	if group != "" && key != "" {
		key = group + "." + key
	} else if key == "" {
		key = group
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return append(fields, core.String(key, a.Value.String()))
	case slog.KindInt64:
		return append(fields, core.Int64(key, a.Value.Int64()))
	case slog.KindUint64:
		return append(fields, core.Uint64(key, a.Value.Uint64()))
	case slog.KindFloat64:
		return append(fields, core.Float64(key, a.Value.Float64()))
	case slog.KindBool:
		return append(fields, core.Bool(key, a.Value.Bool()))
	case slog.KindTime:
		return append(fields, core.Time(key, a.Value.Time()))
	case slog.KindDuration:
		return append(fields, core.Duration(key, a.Value.Duration()))
	case slog.KindGroup:
		for _, ga := range a.Value.Group() {
			fields = appendAttr(fields, key, ga)
		}
		return fields
	default:
		if err, ok := a.Value.Any().(error); ok {
			return append(fields, core.NamedError(key, err))
		}
		return append(fields, core.Any(key, a.Value.Any()))
	}
}

// Slog routes slog's default logger into the pipeline while installed.
type Slog struct {
	prev      *slog.Logger
	prevOut   io.Writer
	prevFlags int
	once      sync.Once
}

// InstallSlog makes a handler over ingest the slog default. Close restores
// the previous default. slog.SetDefault also redirects the log package, so
// its output and flags are saved and restored as well.
func InstallSlog(ingest Ingester, level slog.Leveler) *Slog {
	s := &Slog{
		prev:      slog.Default(),
		prevOut:   log.Writer(),
		prevFlags: log.Flags(),
	}
	slog.SetDefault(slog.New(NewSlogHandler(ingest, level)))
	return s
}

// SlogFactory is the Factory for the slog bridge
func SlogFactory(ingest Ingester) (Source, error) {
	return InstallSlog(ingest, nil), nil
}

// Close restores the previous slog default.
func (s *Slog) Close() error {
	s.once.Do(func() {
		slog.SetDefault(s.prev)
		log.SetOutput(s.prevOut)
		log.SetFlags(s.prevFlags)
	})
	return nil
}
