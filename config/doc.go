// Package config holds the configuration records consumed by the pipeline.
//
// A SinkConfig describes how one sink filters and delivers events: level
// thresholds (global and per category), thread-safety, owner-thread
// dispatch, batching, debug-mode gating and stack-trace capture. Sink
// configurations are values; a sink swaps its whole record on every
// application and never patches one in place.
//
// Settings bundles the per-sink records, keyed by configuration name, with
// the global knobs of the pipeline (scheduler tick floor, default category
// and which built-in log sources are active). A Source supplies Settings;
// FileSource reads them from a TOML file:
//
//	tick_floor = "250ms"
//	default_category = "App"
//
//	[sources]
//	slog = true
//
//	[sinks.ConsoleConfig]
//	minimum_level = "info"
//	is_thread_safe = true
//
//	[sinks.ConsoleConfig.batching]
//	enabled = true
//	max_count = 50
//	max_delay = "100ms"
package config
