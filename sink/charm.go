package sink

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
)

// CharmKind is the kind name of Charm sinks
const CharmKind = "Charm"

// Charm renders events through a charmbracelet logger, using the category
// as the line prefix.
type Charm struct {
	*Base
	logger *log.Logger
}

// CharmDefaults is the built-in configuration of Charm sinks
func CharmDefaults() config.SinkConfig {
	return config.SinkConfig{
		MinimumLevel: "info",
		IsThreadSafe: true,
		StackTrace:   config.StackTraceConfig{MinimumLevel: "exception"},
	}
}

// NewCharm creates a sink writing to logger. A nil logger writes to
// stderr with timestamps.
func NewCharm(logger *log.Logger) *Charm {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Level:           log.DebugLevel,
		})
	}
	return &Charm{
		Base:   NewBase(CharmKind, CharmDefaults()),
		logger: logger,
	}
}

// CharmLevel maps a pipeline level to a charmbracelet level
func CharmLevel(level core.Level) log.Level {
	switch level {
	case core.DebugLevel:
		return log.DebugLevel
	case core.InfoLevel:
		return log.InfoLevel
	case core.WarningLevel:
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}

// Log writes the event through the charmbracelet logger.
func (c *Charm) Log(event *core.Event) error {
	level := CharmLevel(event.Level)
	if level < c.logger.GetLevel() {
		return nil
	}
	l := c.logger
	if event.Category != "" {
		l = l.WithPrefix(event.Category)
	}
	l.Log(level, event.Message, KeyValues(event)...)
	return nil
}

// Close is a no-op; the output belongs to the caller.
func (c *Charm) Close() error {
	return nil
}
