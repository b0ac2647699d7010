package pipeline

import (
	"context"
	"sync"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/logger"
	"github.com/philipp01105/pipelog/sink"
)

var (
	defaultPipeline *Pipeline
	defaultMu       sync.RWMutex
)

// Default returns the package-level pipeline, creating an uninitialized
// one on first use.
func Default() *Pipeline {
	defaultMu.RLock()
	p := defaultPipeline
	defaultMu.RUnlock()
	if p != nil {
		return p
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultPipeline == nil {
		defaultPipeline = New()
	}
	return defaultPipeline
}

// SetDefault replaces the package-level pipeline. The previous one is not
// disposed.
func SetDefault(p *Pipeline) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultPipeline = p
}

// Package-level convenience functions using the default pipeline

// Initialize initializes the default pipeline
func Initialize(ctx context.Context, sinks []sink.Sink, src config.Source) {
	Default().Initialize(ctx, sinks, src)
}

// CreateLogger returns a logger for category from the default pipeline
func CreateLogger(category string) *logger.Logger {
	return Default().CreateLogger(category)
}

// Dispose disposes the default pipeline
func Dispose() error {
	return Default().Dispose()
}
