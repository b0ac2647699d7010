package core

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

// DefaultTimestampLayout is used when a TimeSource is created without a layout
const DefaultTimestampLayout = "2006-01-02 15:04:05.000"

// DefaultRefreshInterval is the default minimum interval between refreshes
const DefaultRefreshInterval = time.Millisecond

// Stamp is a cached time value together with its formatted form
type Stamp struct {
	UTC       time.Time
	Formatted string
}

// TimeSource supplies a cached current-time/formatted-timestamp pair,
// refreshed at most every minInterval, and answers whether the calling
// goroutine is the one that created it.
//
// Refresh happens on read: the first caller to observe a stale stamp
// formats a new one and publishes it atomically. Concurrent readers may
// both refresh, which is harmless.
type TimeSource struct {
	now         func() time.Time
	layout      string
	minInterval time.Duration
	current     atomic.Pointer[Stamp]
	owner       uint64
}

// TimeSourceConfig holds configuration for a TimeSource
type TimeSourceConfig struct {
	// Now returns the current time (default: time.Now)
	Now func() time.Time
	// Layout is the timestamp layout (default: DefaultTimestampLayout)
	Layout string
	// MinInterval is the minimum refresh interval (default: DefaultRefreshInterval)
	MinInterval time.Duration
}

// NewTimeSource creates a TimeSource owned by the calling goroutine.
func NewTimeSource(cfg TimeSourceConfig) *TimeSource {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Layout == "" {
		cfg.Layout = DefaultTimestampLayout
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	} else if cfg.MinInterval == 0 {
		cfg.MinInterval = DefaultRefreshInterval
	}
	ts := &TimeSource{
		now:         cfg.Now,
		layout:      cfg.Layout,
		minInterval: cfg.MinInterval,
		owner:       GoroutineID(),
	}
	ts.refresh(cfg.Now())
	return ts
}

// Now returns the current stamp, refreshing it if it is older than the
// configured minimum interval.
func (ts *TimeSource) Now() Stamp {
	cur := ts.current.Load()
	t := ts.now()
	if t.Sub(cur.UTC) < ts.minInterval {
		return *cur
	}
	return *ts.refresh(t)
}

func (ts *TimeSource) refresh(t time.Time) *Stamp {
	utc := t.UTC()
	s := &Stamp{UTC: utc, Formatted: utc.Format(ts.layout)}
	ts.current.Store(s)
	return s
}

// OnOwnerThread reports whether the caller runs on the goroutine that
// created the TimeSource.
func (ts *TimeSource) OnOwnerThread() bool {
	return GoroutineID() == ts.owner
}

var goroutinePrefix = []byte("goroutine ")

// GoroutineID returns the runtime id of the calling goroutine. It parses
// the header line of runtime.Stack, which is stable across Go releases.
func GoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
