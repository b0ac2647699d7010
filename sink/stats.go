package sink

import (
	"sync/atomic"

	"github.com/philipp01105/pipelog/core"
)

// Stats tracks per-sink delivery counters
type Stats struct {
	processed [core.ExceptionLevel + 1]atomic.Uint64
	failed    atomic.Uint64
	flushes   atomic.Uint64
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

// IncrementProcessed atomically increments the processed counter for a level
func (s *Stats) IncrementProcessed(level core.Level) {
	if level.Valid() {
		s.processed[level].Add(1)
	}
}

// IncrementFailed atomically increments the failed counter
func (s *Stats) IncrementFailed() {
	s.failed.Add(1)
}

// IncrementFlushes atomically increments the flush counter
func (s *Stats) IncrementFlushes() {
	s.flushes.Add(1)
}

// Snapshot is a point-in-time copy of Stats
type Snapshot struct {
	Processed      map[core.Level]uint64
	ProcessedTotal uint64
	Failed         uint64
	Flushes        uint64
}

// GetSnapshot returns a snapshot of current statistics
func (s *Stats) GetSnapshot() Snapshot {
	snap := Snapshot{
		Processed: make(map[core.Level]uint64, len(s.processed)),
		Failed:    s.failed.Load(),
		Flushes:   s.flushes.Load(),
	}
	for lvl := range s.processed {
		n := s.processed[lvl].Load()
		snap.Processed[core.Level(lvl)] = n
		snap.ProcessedTotal += n
	}
	return snap
}

// Reset resets all counters to zero
func (s *Stats) Reset() {
	for lvl := range s.processed {
		s.processed[lvl].Store(0)
	}
	s.failed.Store(0)
	s.flushes.Store(0)
}
