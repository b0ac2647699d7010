// Package sink defines the Sink contract and its built-in implementations.
//
// A Sink is a delivery endpoint for enriched events. Besides Log and Close
// it answers the policy questions the dispatcher asks before delivering:
// is this level enabled for this category, does this event need a stack
// trace. Its behaviour is driven by a config.SinkConfig that is swapped
// wholesale by SetConfiguration.
//
// Sinks that need time-driven work implement Updater. The pipeline's
// scheduler calls Update on all of them at one merged cadence instead of
// running a timer per sink.
//
// Batching is the decorator that adds buffering to any sink whose
// configuration enables it. It is itself a Sink and an Updater, so callers
// never see the difference. Decorate applies it once at initialization;
// ApplyConfigurations binds named configuration records to sinks by
// their configuration key, Kind()+"Config".
//
// Built-in sinks:
//
//   - Console writes formatted events to an io.Writer (default: stdout)
//     and colours levels when the writer is a terminal.
//   - File writes to a file with rotation by size or interval, gzip
//     compression of rotated backups, backup retention and a lock file
//     that keeps a second process from writing the same log.
//   - Zap forwards events to a *zap.Logger.
//   - Memory keeps events in memory, for tests and in-process viewers.
//
// Custom sinks embed *Base to get configuration handling for free.
package sink
