package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/philipp01105/pipelog/core"
	"github.com/philipp01105/pipelog/source"
)

// Option configures a Pipeline
type Option func(*Pipeline)

// WithDeviceID sets the function that identifies this machine for
// debug-mode allow-lists (default: device.ID)
func WithDeviceID(fn func() string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.deviceID = fn
		}
	}
}

// WithDiagnostics sets the logger the pipeline reports its own problems
// through and the fallback loggers write to (default: diag.New)
func WithDiagnostics(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.diag = l
		}
	}
}

// WithTimeSource sets the time source shared by all loggers. Its owner
// goroutine is the one non thread-safe sinks accept events from. By
// default a time source owned by the goroutine calling Initialize is
// created.
func WithTimeSource(ts *core.TimeSource) Option {
	return func(p *Pipeline) {
		p.time = ts
	}
}

// WithTags sets the tag registry snapshotted into every event
func WithTags(tags *core.TagRegistry) Option {
	return func(p *Pipeline) {
		if tags != nil {
			p.tags = tags
		}
	}
}

// WithClock sets the clock used by batching and the scheduler
// (default: time.Now)
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSourceFactory registers a log source. The built-in names
// source.SlogName and source.StdLogName replace the built-in bridges and
// stay gated by the configuration; any other name is installed on every
// Initialize.
func WithSourceFactory(name string, factory source.Factory) Option {
	return func(p *Pipeline) {
		if factory == nil {
			delete(p.factories, name)
			return
		}
		p.factories[name] = factory
	}
}
