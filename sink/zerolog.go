package sink

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
)

// ZerologKind is the kind name of Zerolog sinks
const ZerologKind = "Zerolog"

// Zerolog forwards events to a zerolog logger. The category is written as
// a "category" field.
type Zerolog struct {
	*Base
	logger zerolog.Logger
}

// ZerologDefaults is the built-in configuration of Zerolog sinks
func ZerologDefaults() config.SinkConfig {
	return config.SinkConfig{
		MinimumLevel: "debug",
		IsThreadSafe: true,
	}
}

// NewZerolog creates a sink writing to logger.
func NewZerolog(logger zerolog.Logger) *Zerolog {
	return &Zerolog{
		Base:   NewBase(ZerologKind, ZerologDefaults()),
		logger: logger,
	}
}

// ZerologLevel maps a pipeline level to a zerolog level. Exceptions map to
// ErrorLevel so the backend never exits or panics.
func ZerologLevel(level core.Level) zerolog.Level {
	switch level {
	case core.DebugLevel:
		return zerolog.DebugLevel
	case core.InfoLevel:
		return zerolog.InfoLevel
	case core.WarningLevel:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Log writes the event through zerolog.
func (z *Zerolog) Log(event *core.Event) error {
	e := z.logger.WithLevel(ZerologLevel(event.Level))
	if e == nil {
		return nil
	}
	if event.Category != "" {
		e = e.Str(KeyCategory, event.Category)
	}
	if event.Err != nil {
		e = e.Err(event.Err)
	}
	if attrs := event.Attrs; attrs != nil {
		for _, f := range attrs.Fields {
			e = zerologField(e, f)
		}
		if len(attrs.Tags) > 0 {
			tags := zerolog.Dict()
			for k, v := range attrs.Tags {
				tags = tags.Str(k, v)
			}
			e = e.Dict(KeyTags, tags)
		}
		if attrs.StackTrace != "" {
			e = e.Str(KeyStackTrace, attrs.StackTrace)
		}
	}
	e.Msg(event.Message)
	return nil
}

func zerologField(e *zerolog.Event, f core.Field) *zerolog.Event {
	switch f.Type {
	case core.StringType, core.ErrorType:
		return e.Str(f.Key, f.Str)
	case core.IntType, core.Int64Type:
		return e.Int64(f.Key, f.Int64)
	case core.Uint64Type:
		return e.Uint64(f.Key, uint64(f.Int64))
	case core.Float64Type:
		return e.Float64(f.Key, f.Float64)
	case core.BoolType:
		return e.Bool(f.Key, f.Int64 == 1)
	case core.DurationType:
		return e.Dur(f.Key, f.Value().(time.Duration))
	case core.TimeType:
		return e.Time(f.Key, f.Value().(time.Time))
	default:
		return e.Interface(f.Key, f.Any)
	}
}

// Close is a no-op; the zerolog writer belongs to the caller.
func (z *Zerolog) Close() error {
	return nil
}
