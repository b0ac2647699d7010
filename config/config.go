package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/philipp01105/pipelog/core"
)

// SinkConfig describes the delivery policy of one sink.
type SinkConfig struct {
	// MinimumLevel is the global threshold (default: info)
	MinimumLevel string `toml:"minimum_level" yaml:"minimum_level"`
	// CategoryLevels overrides MinimumLevel for individual categories
	CategoryLevels map[string]string `toml:"category_levels,omitempty" yaml:"category_levels,omitempty"`
	// IsThreadSafe allows Log to be called from any goroutine
	IsThreadSafe bool `toml:"is_thread_safe" yaml:"is_thread_safe"`
	// DispatchToOwnerThread lets a non thread-safe sink accept off-owner
	// calls because it queues them onto its owner itself
	DispatchToOwnerThread DispatchConfig `toml:"dispatch_to_owner_thread" yaml:"dispatch_to_owner_thread"`
	// Batching buffers events before they reach the sink
	Batching BatchingConfig `toml:"batching" yaml:"batching"`
	// DebugMode relaxes filtering on allow-listed devices
	DebugMode DebugModeConfig `toml:"debug_mode" yaml:"debug_mode"`
	// StackTrace controls stack-trace capture
	StackTrace StackTraceConfig `toml:"stack_trace" yaml:"stack_trace"`
}

// DispatchConfig toggles owner-thread dispatch
type DispatchConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// BatchingConfig configures the batching decorator
type BatchingConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// MaxCount flushes once this many events are buffered (0 = no count trigger)
	MaxCount int `toml:"max_count" yaml:"max_count"`
	// MaxDelay flushes buffered events on the first scheduler tick at or
	// after this delay since the previous flush (0 = no time trigger)
	MaxDelay Duration `toml:"max_delay" yaml:"max_delay"`
}

// DebugModeConfig gates debug mode on a device allowlist
type DebugModeConfig struct {
	Enabled          bool     `toml:"enabled" yaml:"enabled"`
	AllowedDeviceIDs []string `toml:"allowed_device_ids" yaml:"allowed_device_ids"`
	// MinimumLevel replaces every threshold while debug mode is on (default: debug)
	MinimumLevel string `toml:"minimum_level" yaml:"minimum_level"`
}

// StackTraceConfig selects the events that need a stack trace
type StackTraceConfig struct {
	// MinimumLevel is the lowest level that captures a trace (empty = never)
	MinimumLevel string `toml:"minimum_level" yaml:"minimum_level"`
	// Categories restricts capture to these categories (empty = all)
	Categories []string `toml:"categories,omitempty" yaml:"categories,omitempty"`
}

// Threshold returns the minimum level for category. Debug mode, when on,
// replaces every threshold with DebugMode.MinimumLevel.
func (c SinkConfig) Threshold(category string, debugMode bool) core.Level {
	if debugMode {
		if lvl, ok := core.ParseLevel(c.DebugMode.MinimumLevel); ok {
			return lvl
		}
		return core.DebugLevel
	}
	if lvl, ok := c.CategoryLevels[category]; ok {
		if parsed, valid := core.ParseLevel(lvl); valid {
			return parsed
		}
	}
	lvl, _ := core.ParseLevel(c.MinimumLevel)
	return lvl
}

// WantsStackTrace reports whether an event at level in category needs a
// stack trace.
func (c SinkConfig) WantsStackTrace(category string, level core.Level) bool {
	minLevel, ok := core.ParseLevel(c.StackTrace.MinimumLevel)
	if !ok || level < minLevel {
		return false
	}
	if len(c.StackTrace.Categories) == 0 {
		return true
	}
	return slices.Contains(c.StackTrace.Categories, category)
}

// DeviceAllowed reports whether debug mode applies to deviceID.
func (c SinkConfig) DeviceAllowed(deviceID string) bool {
	if !c.DebugMode.Enabled || len(c.DebugMode.AllowedDeviceIDs) == 0 || deviceID == "" {
		return false
	}
	for _, id := range c.DebugMode.AllowedDeviceIDs {
		if strings.EqualFold(strings.TrimSpace(id), deviceID) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of c.
func (c SinkConfig) Clone() SinkConfig {
	c.CategoryLevels = maps.Clone(c.CategoryLevels)
	c.DebugMode.AllowedDeviceIDs = slices.Clone(c.DebugMode.AllowedDeviceIDs)
	c.StackTrace.Categories = slices.Clone(c.StackTrace.Categories)
	return c
}

// Validate checks the record for values that cannot be applied.
func (c SinkConfig) Validate() error {
	var errs []error
	if c.MinimumLevel != "" {
		if _, ok := core.ParseLevel(c.MinimumLevel); !ok {
			errs = append(errs, fmt.Errorf("minimum_level: unknown level %q", c.MinimumLevel))
		}
	}
	for category, lvl := range c.CategoryLevels {
		if _, ok := core.ParseLevel(lvl); !ok {
			errs = append(errs, fmt.Errorf("category_levels.%s: unknown level %q", category, lvl))
		}
	}
	if c.DebugMode.MinimumLevel != "" {
		if _, ok := core.ParseLevel(c.DebugMode.MinimumLevel); !ok {
			errs = append(errs, fmt.Errorf("debug_mode.minimum_level: unknown level %q", c.DebugMode.MinimumLevel))
		}
	}
	if c.StackTrace.MinimumLevel != "" {
		if _, ok := core.ParseLevel(c.StackTrace.MinimumLevel); !ok {
			errs = append(errs, fmt.Errorf("stack_trace.minimum_level: unknown level %q", c.StackTrace.MinimumLevel))
		}
	}
	if c.Batching.MaxCount < 0 {
		errs = append(errs, errors.New("batching.max_count must not be negative"))
	}
	if c.Batching.MaxDelay < 0 {
		errs = append(errs, errors.New("batching.max_delay must not be negative"))
	}
	if c.Batching.Enabled && c.Batching.MaxCount == 0 && c.Batching.MaxDelay == 0 {
		errs = append(errs, errors.New("batching: enabled without max_count or max_delay"))
	}
	return errors.Join(errs...)
}

// SourcesConfig selects the built-in log sources
type SourcesConfig struct {
	// Slog routes the log/slog default logger into the pipeline
	Slog bool `toml:"slog" yaml:"slog"`
	// StdLog routes the standard library log package into the pipeline
	StdLog bool `toml:"std_log" yaml:"std_log"`
}

// Settings is the full configuration supplied by a Source.
type Settings struct {
	// TickFloor caps the scheduler period (default: 1s)
	TickFloor Duration `toml:"tick_floor" yaml:"tick_floor"`
	// DefaultCategory names the default logger (default: "Default")
	DefaultCategory string `toml:"default_category" yaml:"default_category"`
	// IncludeCaller adds a "caller" field (file:line) to every event
	IncludeCaller bool `toml:"include_caller" yaml:"include_caller"`
	// Sources selects the built-in log sources
	Sources SourcesConfig `toml:"sources" yaml:"sources"`
	// Sinks maps configuration names to sink records
	Sinks map[string]SinkConfig `toml:"sinks" yaml:"sinks"`
}

const (
	// DefaultTickFloor is used when Settings.TickFloor is unset
	DefaultTickFloor = Duration(time.Second)
	// DefaultCategory is used when Settings.DefaultCategory is unset
	DefaultCategory = "Default"
)

// Default returns Settings populated with defaults and no sink records.
func Default() Settings {
	return Settings{
		TickFloor:       DefaultTickFloor,
		DefaultCategory: DefaultCategory,
		Sinks:           map[string]SinkConfig{},
	}
}

func (s *Settings) normalize() {
	if s.TickFloor <= 0 {
		s.TickFloor = DefaultTickFloor
	}
	s.DefaultCategory = strings.TrimSpace(s.DefaultCategory)
	if s.DefaultCategory == "" {
		s.DefaultCategory = DefaultCategory
	}
	if s.Sinks == nil {
		s.Sinks = map[string]SinkConfig{}
	}
}

// Validate checks every sink record.
func (s *Settings) Validate() error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(s.Sinks)) {
		if err := s.Sinks[name].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sinks.%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
