package sink

import (
	"go.uber.org/zap"

	"github.com/philipp01105/pipelog/config"
)

// ApplyConfigurations binds configuration records to sinks by key
// (ConfigKey(sink.Kind())). A sink whose key is missing from mapping gets its
// DefaultConfiguration and a warning is logged; so does a sink whose record
// fails validation. Debug mode is turned on for
// a sink when its record allow-lists deviceID.
//
// Applying the same mapping twice leaves every sink in the same state.
func ApplyConfigurations(sinks []Sink, mapping map[string]config.SinkConfig, deviceID string, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(mapping) == 0 {
		log.Warn("no sink configurations to apply")
		return
	}
	if len(sinks) == 0 {
		log.Warn("no sinks to configure")
		return
	}

	for _, s := range sinks {
		key := ConfigKey(s.Kind())
		cfg, ok := mapping[key]
		if !ok {
			log.Warn("no configuration found for sink, using defaults",
				zap.String("sink", s.Kind()),
				zap.String("key", key),
			)
			s.SetConfiguration(s.DefaultConfiguration(), false)
			continue
		}
		if err := cfg.Validate(); err != nil {
			log.Warn("invalid sink configuration, using defaults",
				zap.String("sink", s.Kind()),
				zap.String("key", key),
				zap.Error(err),
			)
			s.SetConfiguration(s.DefaultConfiguration(), false)
			continue
		}

		debugMode := cfg.DeviceAllowed(deviceID)
		if debugMode {
			log.Info("debug mode enabled for sink", zap.String("sink", s.Kind()))
		}
		s.SetConfiguration(cfg, debugMode)
	}
}

// Configurations returns the applied configuration of every sink keyed by
// configuration key. Values are deep copies.
func Configurations(sinks []Sink) map[string]config.SinkConfig {
	out := make(map[string]config.SinkConfig, len(sinks))
	for _, s := range sinks {
		out[ConfigKey(s.Kind())] = s.Configuration().Clone()
	}
	return out
}
