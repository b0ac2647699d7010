// Package source bridges host logging APIs into a pipeline.
//
// A Source translates events from another API (log/slog, the standard log
// package) into logger.Record values handed to an Ingester, normally the
// default logger's Dispatch method. Sources are installed by the pipeline
// and closed during teardown, which restores whatever they replaced.
package source

import "github.com/philipp01105/pipelog/logger"

// Ingester receives translated records
type Ingester func(logger.Record)

// Source is an installed bridge
type Source interface {
	Close() error
}

// Factory installs a Source feeding ingest
type Factory func(ingest Ingester) (Source, error)

// Built-in source names, matching the keys of config.SourcesConfig
const (
	SlogName   = "slog"
	StdLogName = "stdlog"
)
