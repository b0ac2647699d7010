package sink

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
)

// ZapKind is the kind name of Zap sinks
const ZapKind = "Zap"

// Zap forwards events to a zap logger. The category becomes the logger
// name and attributes become zap fields.
type Zap struct {
	*Base
	logger *zap.Logger
}

// ZapDefaults is the built-in configuration of Zap sinks
func ZapDefaults() config.SinkConfig {
	return config.SinkConfig{
		MinimumLevel: "debug",
		IsThreadSafe: true,
	}
}

// NewZap creates a sink writing to logger.
func NewZap(logger *zap.Logger) *Zap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Zap{
		Base:   NewBase(ZapKind, ZapDefaults()),
		logger: logger,
	}
}

// ZapLevel maps a pipeline level to a zap level.
func ZapLevel(level core.Level) zapcore.Level {
	switch level {
	case core.DebugLevel:
		return zapcore.DebugLevel
	case core.InfoLevel:
		return zapcore.InfoLevel
	case core.WarningLevel:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Log writes the event through zap.
func (z *Zap) Log(event *core.Event) error {
	l := z.logger
	if event.Category != "" {
		l = l.Named(event.Category)
	}
	ce := l.Check(ZapLevel(event.Level), event.Message)
	if ce == nil {
		return nil
	}
	ce.Write(ZapFields(event)...)
	return nil
}

// ZapFields converts the event's error and attributes to zap fields.
func ZapFields(event *core.Event) []zap.Field {
	var n int
	if event.Attrs != nil {
		n = len(event.Attrs.Fields) + 2
	}
	fields := make([]zap.Field, 0, n+1)
	if event.Err != nil {
		fields = append(fields, zap.Error(event.Err))
	}
	if event.Attrs == nil {
		return fields
	}
	for _, f := range event.Attrs.Fields {
		fields = append(fields, zapField(f))
	}
	if len(event.Attrs.Tags) > 0 {
		fields = append(fields, zap.Any("tags", event.Attrs.Tags))
	}
	if event.Attrs.StackTrace != "" {
		fields = append(fields, zap.String("stacktrace", event.Attrs.StackTrace))
	}
	return fields
}

func zapField(f core.Field) zap.Field {
	switch f.Type {
	case core.StringType:
		return zap.String(f.Key, f.Str)
	case core.IntType, core.Int64Type:
		return zap.Int64(f.Key, f.Int64)
	case core.Uint64Type:
		return zap.Uint64(f.Key, uint64(f.Int64))
	case core.Float64Type:
		return zap.Float64(f.Key, f.Float64)
	case core.BoolType:
		return zap.Bool(f.Key, f.Int64 == 1)
	case core.DurationType, core.TimeType:
		return zap.Any(f.Key, f.Value())
	case core.ErrorType:
		if err := f.Err(); err != nil {
			return zap.NamedError(f.Key, err)
		}
		return zap.String(f.Key, f.Str)
	default:
		return zap.Any(f.Key, f.Any)
	}
}

// Close syncs the zap logger. Sync errors are ignored: stderr and
// terminals report EINVAL on fsync.
func (z *Zap) Close() error {
	_ = z.logger.Sync()
	return nil
}
