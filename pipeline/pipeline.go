package pipeline

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
	"github.com/philipp01105/pipelog/device"
	"github.com/philipp01105/pipelog/internal/diag"
	"github.com/philipp01105/pipelog/logger"
	"github.com/philipp01105/pipelog/scheduler"
	"github.com/philipp01105/pipelog/sink"
	"github.com/philipp01105/pipelog/source"
)

// State is the lifecycle state of a Pipeline
type State int32

const (
	Uninitialized State = iota
	Initialized
	Disposed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Pipeline is the registry of sinks, loggers, sources and the scheduler.
// Initialize and Dispose are expected to run on one goroutine; CreateLogger
// and logging calls are safe from any goroutine.
type Pipeline struct {
	deviceID  func() string
	diag      *zap.Logger
	time      *core.TimeSource
	tags      *core.TagRegistry
	now       func() time.Time
	factories map[string]source.Factory

	fallbackSink *sink.Zap
	fallbackTime *core.TimeSource

	state atomic.Int32
	life  sync.Mutex

	// guarded by mu
	mu         sync.RWMutex
	loggers    map[string]*logger.Logger
	sinks      []sink.Sink
	raw        []sink.Sink
	timeSource *core.TimeSource
	caller     bool

	settings      *config.Settings
	defaultLogger *logger.Logger
	sched         *scheduler.Scheduler
	sources       []source.Source
	stopHook      func() bool
}

// New creates an uninitialized pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		deviceID: device.ID,
		tags:     core.NewTagRegistry(),
		now:      time.Now,
		factories: map[string]source.Factory{
			source.SlogName:   source.SlogFactory,
			source.StdLogName: source.StdLogFactory,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.diag == nil {
		p.diag = diag.New()
	}
	p.fallbackSink = sink.NewZap(p.diag.Named("fallback"))
	p.fallbackTime = core.NewTimeSource(core.TimeSourceConfig{Now: p.now})
	return p
}

// State returns the lifecycle state
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Tags returns the registry whose entries are attached to every event
func (p *Pipeline) Tags() *core.TagRegistry {
	return p.tags
}

// Initialize loads settings from src, configures and decorates sinks,
// starts the scheduler and installs log sources. It never returns an
// error: failures are reported on the diagnostic logger and leave the
// pipeline disposed, serving fallback loggers. Calling it more than once
// is a no-op. Cancelling ctx disposes the pipeline.
func (p *Pipeline) Initialize(ctx context.Context, sinks []sink.Sink, src config.Source) {
	p.life.Lock()
	defer p.life.Unlock()

	switch p.State() {
	case Initialized:
		p.diag.Warn("pipeline already initialized")
		return
	case Disposed:
		p.diag.Warn("pipeline already disposed, cannot initialize")
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if err := p.initialize(ctx, sinks, src); err != nil {
		p.diag.Error("pipeline initialization failed, falling back", zap.Error(err))
		p.state.Store(int32(Disposed))
		p.teardown()
	}
}

func (p *Pipeline) initialize(ctx context.Context, sinks []sink.Sink, src config.Source) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during initialization: %v", rec)
		}
	}()

	// Owned from here on: a failed initialization still closes them.
	raw := slices.Clone(sinks)
	p.mu.Lock()
	p.raw = raw
	p.mu.Unlock()

	settings, err := p.loadSettings(src)
	if err != nil {
		return err
	}

	ts := p.time
	if ts == nil {
		ts = core.NewTimeSource(core.TimeSourceConfig{Now: p.now})
	}

	if len(raw) == 0 {
		p.diag.Warn("pipeline initialized without sinks")
	}
	sink.ApplyConfigurations(raw, settings.Sinks, p.deviceID(), p.diag)
	decorated := sink.Decorate(raw, p.now)

	p.mu.Lock()
	p.sinks = decorated
	p.timeSource = ts
	p.caller = settings.IncludeCaller
	p.loggers = make(map[string]*logger.Logger)
	p.mu.Unlock()
	p.settings = settings

	if updaters := sink.Updaters(decorated); len(updaters) > 0 {
		p.sched = scheduler.New(settings.TickFloor.Std(), updaters, p.now, scheduler.WithDiagnostics(p.diag))
		p.sched.Start(ctx)
	}
	p.stopHook = context.AfterFunc(ctx, func() { _ = p.Dispose() })

	p.state.Store(int32(Initialized))

	p.defaultLogger = p.CreateLogger(settings.DefaultCategory)
	if err := p.installSources(settings.Sources); err != nil {
		return err
	}

	p.diag.Debug("pipeline initialized",
		zap.Int("sinks", len(decorated)),
		zap.Stringer("tick", tickPeriod(p.sched)),
	)
	return nil
}

func (p *Pipeline) loadSettings(src config.Source) (*config.Settings, error) {
	if src == nil {
		s := config.Default()
		return &s, nil
	}
	settings, err := src.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if settings == nil {
		s := config.Default()
		settings = &s
	}
	return settings, nil
}

func (p *Pipeline) installSources(enabled config.SourcesConfig) error {
	ingest := source.Ingester(p.defaultLogger.Dispatch)
	for _, name := range slices.Sorted(maps.Keys(p.factories)) {
		switch name {
		case source.SlogName:
			if !enabled.Slog {
				continue
			}
		case source.StdLogName:
			if !enabled.StdLog {
				continue
			}
		}
		src, err := p.factories[name](ingest)
		if err != nil {
			return fmt.Errorf("install source %s: %w", name, err)
		}
		p.sources = append(p.sources, src)
	}
	return nil
}

func tickPeriod(s *scheduler.Scheduler) time.Duration {
	if s == nil {
		return 0
	}
	return s.Period()
}

// CreateLogger returns the logger for category, creating it on first use.
// Concurrent callers asking for the same category get the same instance.
// Outside the initialized state a fallback logger is returned.
func (p *Pipeline) CreateLogger(category string) *logger.Logger {
	if p.State() != Initialized {
		return p.fallback(category)
	}

	p.mu.RLock()
	l, ok := p.loggers[category]
	p.mu.RUnlock()
	if ok {
		return l
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loggers == nil {
		return p.fallback(category)
	}
	if l, ok := p.loggers[category]; ok {
		return l
	}
	l = logger.NewBuilder(category).
		WithSinks(p.sinks...).
		WithTimeSource(p.timeSource).
		WithTags(p.tags).
		WithDiagnostics(p.diag).
		WithCaller(p.caller).
		Build()
	p.loggers[category] = l
	return l
}

func (p *Pipeline) fallback(category string) *logger.Logger {
	p.diag.Warn("pipeline not initialized, using fallback logger",
		zap.String("category", category),
		zap.Stringer("state", p.State()),
	)
	return logger.NewBuilder(category).
		WithSinks(p.fallbackSink).
		WithTimeSource(p.fallbackTime).
		WithTags(p.tags).
		WithDiagnostics(p.diag).
		Build()
}

// DefaultLogger returns the logger of the configured default category, or
// a fallback logger when the pipeline is not initialized.
func (p *Pipeline) DefaultLogger() *logger.Logger {
	if p.State() != Initialized {
		return p.fallback(config.DefaultCategory)
	}
	return p.defaultLogger
}

// ApplySinkConfigurations binds mapping to the active sinks. Sinks without
// an entry fall back to their defaults. Turning batching on for a sink that
// was not batched at Initialize takes effect only after re-initialization.
func (p *Pipeline) ApplySinkConfigurations(mapping map[string]config.SinkConfig) {
	p.life.Lock()
	defer p.life.Unlock()

	if p.State() != Initialized {
		p.diag.Warn("cannot apply sink configurations", zap.Stringer("state", p.State()))
		return
	}

	sink.ApplyConfigurations(p.sinks, mapping, p.deviceID(), p.diag)
	for _, s := range p.sinks {
		if _, ok := s.(sink.Wrapper); ok {
			continue
		}
		if s.Configuration().Batching.Enabled {
			p.diag.Warn("batching enabled for an unbatched sink, re-initialize to apply",
				zap.String("sink", s.Kind()),
			)
		}
	}
}

// CurrentSinkConfigurations returns the applied configuration of every
// active sink, keyed by configuration key. It is empty unless the pipeline
// is initialized.
func (p *Pipeline) CurrentSinkConfigurations() map[string]config.SinkConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.State() != Initialized {
		return map[string]config.SinkConfig{}
	}
	return sink.Configurations(p.sinks)
}

// Sinks returns the active sinks after decoration. It is nil unless the
// pipeline is initialized.
func (p *Pipeline) Sinks() []sink.Sink {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.State() != Initialized {
		return nil
	}
	return slices.Clone(p.sinks)
}

// Dispose stops the scheduler, closes loggers, sources and sinks, flushing
// any batched events. Later calls are no-ops. Close errors are returned
// and reported on the diagnostic logger.
func (p *Pipeline) Dispose() error {
	p.life.Lock()
	defer p.life.Unlock()

	if !p.state.CompareAndSwap(int32(Initialized), int32(Disposed)) {
		if p.State() == Uninitialized {
			p.diag.Warn("dispose called on uninitialized pipeline")
		}
		return nil
	}
	return p.teardown()
}

// teardown releases everything Initialize acquired. Sinks are closed
// decorated first, then raw, each instance once.
func (p *Pipeline) teardown() error {
	if p.stopHook != nil {
		p.stopHook()
		p.stopHook = nil
	}
	if p.sched != nil {
		p.sched.Stop()
		p.sched = nil
	}

	p.mu.Lock()
	loggers := p.loggers
	decorated, raw := p.sinks, p.raw
	p.loggers = nil
	p.sinks, p.raw = nil, nil
	p.timeSource = nil
	p.mu.Unlock()

	for _, l := range loggers {
		_ = l.Close()
	}

	var err error
	for i := len(p.sources) - 1; i >= 0; i-- {
		err = multierr.Append(err, p.sources[i].Close())
	}
	p.sources = nil

	closed := make(map[sink.Sink]struct{}, len(decorated)+len(raw))
	for _, s := range slices.Concat(decorated, raw) {
		if _, ok := closed[s]; ok {
			continue
		}
		err = multierr.Append(err, closeSink(s))
		// A decorator closes what it wraps
		for cur := s; cur != nil; {
			closed[cur] = struct{}{}
			w, ok := cur.(sink.Wrapper)
			if !ok {
				break
			}
			cur = w.Unwrap()
		}
	}

	p.settings = nil
	p.defaultLogger = nil

	if err != nil {
		p.diag.Error("errors while disposing pipeline", zap.Error(err))
	}
	return err
}

func closeSink(s sink.Sink) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("close sink %s: panic: %v", s.Kind(), rec)
		}
	}()
	if cerr := s.Close(); cerr != nil {
		return fmt.Errorf("close sink %s: %w", s.Kind(), cerr)
	}
	return nil
}
