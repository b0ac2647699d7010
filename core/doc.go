// Package core defines the shared types used across the pipelog pipeline.
//
// It provides the Level type for severity filtering, the Event type that
// represents a single enriched log call, the Attributes record attached to
// every Event, and the Field type for typed structured key-value pairs.
//
// An Event is built once per dispatch and handed by pointer to every sink
// that accepts it. Sinks must treat it as read-only: batching sinks keep the
// pointer around after Log returns. When a late enrichment step has to add
// data (a stack trace requested by only some sinks), it works on a copy via
// Attributes.WithStackTrace rather than touching the published value.
//
// TimeSource caches the current time and its formatted representation so
// that a burst of log calls does not pay for time.Now and formatting on
// every call. It also remembers the goroutine that created it, which the
// dispatcher uses as the "owner thread" for sinks that are not safe to call
// concurrently.
//
// TagRegistry is a process-wide mutable set of tags copied into every
// Event at emit time.
package core
