// Package pipeline owns the lifecycle of a logging pipeline.
//
// A Pipeline is initialized once with a list of sinks and a configuration
// source. Initialization binds configuration records to sinks, wraps the
// sinks that request batching, starts the shared update scheduler and
// installs the configured log sources. Loggers are handed out per category
// and cached, so every caller asking for the same category shares one
// Logger.
//
// Before Initialize and after Dispose, CreateLogger returns a fallback
// logger that writes to the diagnostic zap logger, so logging calls never
// fail.
//
// Basic usage:
//
//	p := pipeline.New()
//	p.Initialize(ctx, []sink.Sink{sink.NewConsole(sink.ConsoleConfig{})}, config.FileSource{Path: "pipelog.toml"})
//	defer p.Dispose()
//
//	log := p.CreateLogger("Api")
//	log.Info("listening", logger.Int("port", 8080))
//
// Cancelling the context passed to Initialize disposes the pipeline.
package pipeline
