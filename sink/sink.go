package sink

import (
	"errors"
	"time"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
)

// ConfigSuffix is appended to a sink kind to form its configuration key
const ConfigSuffix = "Config"

// ErrClosed is returned by Log after Close
var ErrClosed = errors.New("sink: closed")

// ConfigKey returns the configuration key for a sink kind.
func ConfigKey(kind string) string {
	return kind + ConfigSuffix
}

// Sink defines the interface for event delivery endpoints
type Sink interface {
	// Kind returns the static kind name used to derive the configuration key
	Kind() string

	// IsLevelEnabled reports whether events at level in category are accepted
	IsLevelEnabled(category string, level core.Level) bool

	// RequiresStackTrace reports whether events at level in category need a stack trace
	RequiresStackTrace(category string, level core.Level) bool

	// Configuration returns the applied configuration. Its maps and slices
	// are shared and must not be modified.
	Configuration() config.SinkConfig

	// SetConfiguration replaces the configuration and the debug-mode flag
	SetConfiguration(cfg config.SinkConfig, debugMode bool)

	// DefaultConfiguration returns the built-in configuration for this kind
	DefaultConfiguration() config.SinkConfig

	// DebugMode reports whether debug mode is on
	DebugMode() bool

	// Log delivers an event. The event is shared and must not be modified.
	Log(event *core.Event) error

	// Close flushes and releases resources. Decorators close the sink they
	// wrap and the pipeline closes raw sinks as well, so Close must be
	// safe to call more than once.
	Close() error
}

// Updater is implemented by sinks that need periodic work.
type Updater interface {
	// UpdatePeriod is the longest acceptable interval between Update calls.
	// Non-positive values opt out of scheduling.
	UpdatePeriod() time.Duration

	// Update is called by the scheduler with the current time and the time
	// elapsed since the previous tick.
	Update(now time.Time, delta time.Duration)
}

// Wrapper is implemented by decorators.
type Wrapper interface {
	Unwrap() Sink
}

// Updaters returns the sinks that implement Updater with a positive period,
// in list order.
func Updaters(sinks []Sink) []Updater {
	var out []Updater
	for _, s := range sinks {
		if u, ok := s.(Updater); ok && u.UpdatePeriod() > 0 {
			out = append(out, u)
		}
	}
	return out
}
