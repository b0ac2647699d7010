package sink

import (
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
)

// Batching buffers events for a wrapped sink and releases them when
// MaxCount events are buffered or, on a scheduler tick, when MaxDelay has
// elapsed since the previous flush. All policy queries delegate to the
// wrapped sink.
//
// A wrapped sink that is neither thread-safe nor dispatched to its owner
// is only written from the owner goroutine: the delay is then checked on
// the next Log instead of on the scheduler, and Close releases the rest.
//
// The buffer has a single lock shared by the producer path (count trigger)
// and the scheduler path (time trigger), so events reach the wrapped sink
// in arrival order.
type Batching struct {
	inner Sink
	now   func() time.Time
	stats *Stats

	mu        sync.Mutex
	buf       []*core.Event
	maxCount  int
	maxDelay  time.Duration
	lastFlush time.Time
	closed    bool

	// ownerBound sinks are never flushed from the scheduler
	ownerBound bool
}

// NewBatching wraps inner using the batching settings of its current
// configuration. now supplies the start of the first delay window
// (default: time.Now).
func NewBatching(inner Sink, now func() time.Time) *Batching {
	if now == nil {
		now = time.Now
	}
	b := &Batching{
		inner: inner,
		now:   now,
		stats: NewStats(),
	}
	cfg := inner.Configuration()
	b.setLimits(cfg.Batching)
	b.ownerBound = isOwnerBound(cfg)
	b.lastFlush = now()
	return b
}

func isOwnerBound(cfg config.SinkConfig) bool {
	return !cfg.IsThreadSafe && !cfg.DispatchToOwnerThread.Enabled
}

// maxPrealloc bounds the buffer capacity reserved up front; larger
// batches grow on append.
const maxPrealloc = 1024

func (b *Batching) setLimits(cfg config.BatchingConfig) {
	b.maxCount = cfg.MaxCount
	b.maxDelay = cfg.MaxDelay.Std()
	if want := min(b.maxCount, maxPrealloc); want > 0 && cap(b.buf) < want {
		grown := make([]*core.Event, len(b.buf), want)
		copy(grown, b.buf)
		b.buf = grown
	}
}

// Unwrap returns the wrapped sink.
func (b *Batching) Unwrap() Sink {
	return b.inner
}

// Kind reports the wrapped sink's kind so both forms share a configuration key.
func (b *Batching) Kind() string {
	return b.inner.Kind()
}

// IsLevelEnabled implements Sink.
func (b *Batching) IsLevelEnabled(category string, level core.Level) bool {
	return b.inner.IsLevelEnabled(category, level)
}

// RequiresStackTrace implements Sink.
func (b *Batching) RequiresStackTrace(category string, level core.Level) bool {
	return b.inner.RequiresStackTrace(category, level)
}

// Configuration implements Sink.
func (b *Batching) Configuration() config.SinkConfig {
	return b.inner.Configuration()
}

// SetConfiguration forwards the configuration and adopts its batching limits.
// Disabling batching on a live decorator flushes the buffer and sets the
// count trigger to one, so later events pass straight through.
func (b *Batching) SetConfiguration(cfg config.SinkConfig, debugMode bool) {
	b.inner.SetConfiguration(cfg, debugMode)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.ownerBound = isOwnerBound(cfg)
	if cfg.Batching.Enabled {
		b.setLimits(cfg.Batching)
	} else {
		b.setLimits(config.BatchingConfig{MaxCount: 1})
	}
	if b.maxCount > 0 && len(b.buf) >= b.maxCount {
		_ = b.flushLocked()
	}
}

// DefaultConfiguration implements Sink.
func (b *Batching) DefaultConfiguration() config.SinkConfig {
	return b.inner.DefaultConfiguration()
}

// DebugMode implements Sink.
func (b *Batching) DebugMode() bool {
	return b.inner.DebugMode()
}

// Log buffers the event and flushes when the count threshold is reached.
func (b *Batching) Log(event *core.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.buf = append(b.buf, event)
	if b.maxCount > 0 && len(b.buf) >= b.maxCount {
		return b.flushLocked()
	}
	if b.ownerBound && b.maxDelay > 0 && b.now().Sub(b.lastFlush) >= b.maxDelay {
		return b.flushLocked()
	}
	return nil
}

// UpdatePeriod implements Updater. It is zero for owner-bound sinks so
// the scheduler leaves them alone.
func (b *Batching) UpdatePeriod() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ownerBound {
		return 0
	}
	return b.maxDelay
}

// Update flushes the buffer when MaxDelay has elapsed since the last flush.
func (b *Batching) Update(now time.Time, _ time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.ownerBound || len(b.buf) == 0 || b.maxDelay <= 0 {
		return
	}
	if now.Sub(b.lastFlush) < b.maxDelay {
		return
	}
	_ = b.flushLocked()
	b.lastFlush = now
}

// flushLocked flushes events (must be called with lock held).
func (b *Batching) flushLocked() error {
	if len(b.buf) == 0 {
		return nil
	}

	var err error
	for i, e := range b.buf {
		if logErr := b.inner.Log(e); logErr != nil {
			b.stats.IncrementFailed()
			err = multierr.Append(err, logErr)
		} else {
			b.stats.IncrementProcessed(e.Level)
		}
		b.buf[i] = nil
	}
	b.buf = b.buf[:0]
	b.lastFlush = b.now()
	b.stats.IncrementFlushes()
	return err
}

// Len returns the number of buffered events.
func (b *Batching) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Stats returns a snapshot of the decorator's counters.
func (b *Batching) Stats() Snapshot {
	return b.stats.GetSnapshot()
}

// Close flushes remaining events and closes the wrapped sink.
func (b *Batching) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	err := b.flushLocked()
	b.closed = true
	b.mu.Unlock()

	return multierr.Append(err, b.inner.Close())
}

// Decorate wraps every sink whose configuration enables batching and passes
// the others through unchanged. The result has the same order as sinks.
func Decorate(sinks []Sink, now func() time.Time) []Sink {
	out := make([]Sink, len(sinks))
	for i, s := range sinks {
		if s.Configuration().Batching.Enabled {
			out[i] = NewBatching(s, now)
		} else {
			out[i] = s
		}
	}
	return out
}
