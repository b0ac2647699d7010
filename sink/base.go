package sink

import (
	"sync/atomic"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
)

type baseState struct {
	cfg   config.SinkConfig
	debug bool
}

// Base implements the configuration half of Sink. Concrete sinks embed a
// *Base and add Log and Close.
type Base struct {
	kind     string
	defaults config.SinkConfig
	state    atomic.Pointer[baseState]
}

// NewBase creates a Base of the given kind, configured with defaults until
// SetConfiguration is called.
func NewBase(kind string, defaults config.SinkConfig) *Base {
	b := &Base{kind: kind, defaults: defaults.Clone()}
	b.state.Store(&baseState{cfg: defaults.Clone()})
	return b
}

// Kind implements Sink.
func (b *Base) Kind() string {
	return b.kind
}

// IsLevelEnabled implements Sink.
func (b *Base) IsLevelEnabled(category string, level core.Level) bool {
	st := b.state.Load()
	return level >= st.cfg.Threshold(category, st.debug)
}

// RequiresStackTrace implements Sink.
func (b *Base) RequiresStackTrace(category string, level core.Level) bool {
	return b.state.Load().cfg.WantsStackTrace(category, level)
}

// Configuration implements Sink.
func (b *Base) Configuration() config.SinkConfig {
	return b.state.Load().cfg
}

// SetConfiguration implements Sink.
func (b *Base) SetConfiguration(cfg config.SinkConfig, debugMode bool) {
	b.state.Store(&baseState{cfg: cfg.Clone(), debug: debugMode})
}

// DefaultConfiguration implements Sink.
func (b *Base) DefaultConfiguration() config.SinkConfig {
	return b.defaults.Clone()
}

// DebugMode implements Sink.
func (b *Base) DebugMode() bool {
	return b.state.Load().debug
}
