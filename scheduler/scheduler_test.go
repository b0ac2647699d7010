package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
	"github.com/philipp01105/pipelog/sink"
)

type recorder struct {
	period time.Duration
	mu     sync.Mutex
	deltas []time.Duration
	order  *[]string
	name   string
}

func (r *recorder) UpdatePeriod() time.Duration { return r.period }

func (r *recorder) Update(_ time.Time, delta time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, delta)
	if r.order != nil {
		*r.order = append(*r.order, r.name)
	}
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deltas)
}

type panicker struct{}

func (panicker) UpdatePeriod() time.Duration     { return time.Millisecond }
func (panicker) Update(time.Time, time.Duration) { panic("tick") }

func TestPeriod(t *testing.T) {
	tests := []struct {
		name     string
		floor    time.Duration
		periods  []time.Duration
		expected time.Duration
	}{
		{"floor only", time.Second, nil, time.Second},
		{"updater shorter", time.Second, []time.Duration{100 * time.Millisecond, 300 * time.Millisecond}, 100 * time.Millisecond},
		{"floor shorter", 50 * time.Millisecond, []time.Duration{100 * time.Millisecond}, 50 * time.Millisecond},
		{"non-positive ignored", time.Second, []time.Duration{0, -time.Second}, time.Second},
		{"no floor", 0, []time.Duration{200 * time.Millisecond}, 200 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var us []sink.Updater
			for _, p := range tt.periods {
				us = append(us, &recorder{period: p})
			}
			assert.Equal(t, tt.expected, Period(tt.floor, us))
		})
	}
}

func TestTick_OrderAndDelta(t *testing.T) {
	var order []string
	a := &recorder{period: time.Second, order: &order, name: "a"}
	b := &recorder{period: time.Second, order: &order, name: "b"}

	now := time.Unix(100, 0)
	s := New(time.Second, []sink.Updater{a, b}, func() time.Time { return now })
	s.last = now

	now = now.Add(250 * time.Millisecond)
	s.tick()
	now = now.Add(100 * time.Millisecond)
	s.tick()

	assert.Equal(t, []string{"a", "b", "a", "b"}, order)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 100 * time.Millisecond}, a.deltas)
}

func TestStart_RunsUntilStopped(t *testing.T) {
	r := &recorder{period: 5 * time.Millisecond}
	s := New(time.Second, []sink.Updater{r}, nil)
	require.Equal(t, 5*time.Millisecond, s.Period())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return r.calls() >= 3 }, time.Second, time.Millisecond)

	s.Stop()
	n := r.calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, r.calls(), "updates after Stop returned")

	s.Stop()
}

func TestStart_ContextCancel(t *testing.T) {
	r := &recorder{period: 2 * time.Millisecond}
	s := New(time.Second, []sink.Updater{r}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return r.calls() > 0 }, time.Second, time.Millisecond)
	cancel()

	// Stop still joins the exited loop
	s.Stop()
	n := r.calls()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, r.calls())
}

func TestStart_NoUpdaters(t *testing.T) {
	s := New(time.Millisecond, nil, nil)
	s.Start(context.Background())
	assert.Nil(t, s.done)
	s.Stop()
}

func TestTick_PanickingUpdaterIsRecovered(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	r := &recorder{period: time.Second}
	s := New(time.Second, []sink.Updater{panicker{}, r}, nil, WithDiagnostics(zap.New(obsCore)))

	s.tick()

	assert.Equal(t, 1, r.calls())
	assert.Equal(t, 1, logs.FilterMessage("updater panicked").Len())
}

func TestScheduler_FlushesBatchingByDelay(t *testing.T) {
	mem := sink.NewMemory("")
	cfg := sink.MemoryDefaults()
	cfg.Batching = config.BatchingConfig{Enabled: true, MaxCount: 10, MaxDelay: config.Duration(100 * time.Millisecond)}
	mem.SetConfiguration(cfg, false)

	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	b := sink.NewBatching(mem, clock)
	s := New(time.Second, sink.Updaters([]sink.Sink{b}), clock)
	s.last = now

	require.NoError(t, b.Log(&core.Event{Message: "one", Attrs: &core.Attributes{}}))

	now = now.Add(99 * time.Millisecond)
	s.tick()
	assert.Equal(t, 0, mem.Len(), "flushed before max delay")

	now = now.Add(time.Millisecond)
	s.tick()
	assert.Equal(t, []string{"one"}, mem.Messages())
}
