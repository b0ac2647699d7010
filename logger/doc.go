// Package logger is the producer-facing API of pipelog.
//
// A Logger belongs to one category and fans every call out to the sinks
// it was built with. Loggers are normally obtained from a
// pipeline.Pipeline, which caches one Logger per category; the Builder
// exists for hosts and tests that wire sinks by hand:
//
//	log := logger.NewBuilder("Network").
//	    WithSinks(consoleSink, fileSink).
//	    WithTimeSource(ts).
//	    Build()
//
//	log.Info("connected", logger.String("peer", addr))
//	log.Exception(err, logger.Int("attempt", n))
//
// Each call is enriched at most once, and only when at least one sink
// accepts it: a call that every sink filters out costs one policy check per
// sink and no allocation. Stack traces are captured only when a sink's
// policy asks for one, and the captured trace is reused for the remaining
// sinks of the same call.
//
// A sink whose configuration is not thread-safe only receives calls made
// on the owner goroutine of the TimeSource, unless its configuration opts
// into owner-thread dispatch; calls from other goroutines are dropped for
// that sink alone and reported on the diagnostic channel.
//
// Logging never panics into the caller. A sink that returns an error or
// panics is reported on the diagnostic channel and the remaining sinks
// still receive the event.
package logger
