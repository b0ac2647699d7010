package sink

import (
	"github.com/sirupsen/logrus"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
)

// LogrusKind is the kind name of Logrus sinks
const LogrusKind = "Logrus"

// Logrus forwards events to a logrus logger, keeping the event time.
type Logrus struct {
	*Base
	logger *logrus.Logger
}

// LogrusDefaults is the built-in configuration of Logrus sinks
func LogrusDefaults() config.SinkConfig {
	return config.SinkConfig{
		MinimumLevel: "info",
		IsThreadSafe: true,
	}
}

// NewLogrus creates a sink writing to logger (default: logrus.StandardLogger).
func NewLogrus(logger *logrus.Logger) *Logrus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Logrus{
		Base:   NewBase(LogrusKind, LogrusDefaults()),
		logger: logger,
	}
}

// LogrusLevel maps a pipeline level to a logrus level. Exceptions map to
// ErrorLevel so the backend never exits or panics.
func LogrusLevel(level core.Level) logrus.Level {
	switch level {
	case core.DebugLevel:
		return logrus.DebugLevel
	case core.InfoLevel:
		return logrus.InfoLevel
	case core.WarningLevel:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

// Log writes the event through logrus.
func (l *Logrus) Log(event *core.Event) error {
	level := LogrusLevel(event.Level)
	if !l.logger.IsLevelEnabled(level) {
		return nil
	}

	kv := KeyValues(event)
	fields := make(logrus.Fields, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i].(string)] = kv[i+1]
	}
	if event.Category != "" {
		fields[KeyCategory] = event.Category
	}

	entry := logrus.NewEntry(l.logger).WithFields(fields)
	if t := event.Time(); !t.IsZero() {
		entry = entry.WithTime(t)
	}
	entry.Log(level, event.Message)
	return nil
}

// Close is a no-op; the logrus output belongs to the caller.
func (l *Logrus) Close() error {
	return nil
}
