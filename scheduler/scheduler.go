package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/philipp01105/pipelog/sink"
)

// Scheduler runs Update on a fixed set of updaters at a merged period.
type Scheduler struct {
	updaters []sink.Updater
	period   time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	last    time.Time
	started bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithDiagnostics sets the logger used to report panicking updaters
func WithDiagnostics(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a scheduler. A nil clock uses time.Now.
func New(floor time.Duration, updaters []sink.Updater, clock func() time.Time, opts ...Option) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	s := &Scheduler{
		updaters: append([]sink.Updater(nil), updaters...),
		period:   Period(floor, updaters),
		now:      clock,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Period returns the tick period for floor and updaters: the smallest
// positive value among floor and the updaters' periods.
func Period(floor time.Duration, updaters []sink.Updater) time.Duration {
	period := floor
	for _, u := range updaters {
		p := u.UpdatePeriod()
		if p <= 0 {
			continue
		}
		if period <= 0 || p < period {
			period = p
		}
	}
	return period
}

// Period returns the merged tick period
func (s *Scheduler) Period() time.Duration {
	return s.period
}

// Start launches the update loop. It is a no-op when there are no
// updaters, no usable period, or the loop already runs. The loop ends
// when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || len(s.updaters) == 0 || s.period <= 0 {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.last = s.now()
	go s.run(ctx, s.done)
}

// Stop cancels the loop and waits for it to exit. Safe to call more than
// once and on a scheduler that never started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.tick()
		}
	}
}

// tick runs one update pass.
func (s *Scheduler) tick() {
	now := s.now()
	delta := now.Sub(s.last)
	s.last = now
	for _, u := range s.updaters {
		s.update(u, now, delta)
	}
}

func (s *Scheduler) update(u sink.Updater, now time.Time, delta time.Duration) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("updater panicked", zap.Any("panic", rec))
		}
	}()
	u.Update(now, delta)
}
