package sink

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return c.t
}

func event(msg string) *core.Event {
	return &core.Event{Level: core.InfoLevel, Category: "Test", Message: msg, Attrs: &core.Attributes{}}
}

func batchedMemory(t *testing.T, maxCount int, maxDelay time.Duration, clock *manualClock) (*Memory, *Batching) {
	t.Helper()
	mem := NewMemory("")
	cfg := MemoryDefaults()
	cfg.Batching = config.BatchingConfig{Enabled: true, MaxCount: maxCount, MaxDelay: config.Duration(maxDelay)}
	mem.SetConfiguration(cfg, false)
	return mem, NewBatching(mem, clock.Now)
}

func TestBatching_CountTrigger(t *testing.T) {
	mem, b := batchedMemory(t, 5, 0, newManualClock())

	for i := 0; i < 4; i++ {
		require.NoError(t, b.Log(event(fmt.Sprintf("m%d", i))))
	}
	assert.Equal(t, 0, mem.Len(), "four events must stay buffered")
	assert.Equal(t, 4, b.Len())

	require.NoError(t, b.Log(event("m4")))
	assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4"}, mem.Messages())
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, uint64(1), b.Stats().Flushes)
}

func TestBatching_DelayTrigger(t *testing.T) {
	clock := newManualClock()
	mem, b := batchedMemory(t, 10, 100*time.Millisecond, clock)

	require.NoError(t, b.Log(event("a")))
	require.NoError(t, b.Log(event("b")))

	b.Update(clock.Advance(99*time.Millisecond), 99*time.Millisecond)
	assert.Equal(t, 0, mem.Len(), "tick before max delay must not flush")

	b.Update(clock.Advance(time.Millisecond), time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, mem.Messages())

	require.NoError(t, b.Log(event("c")))
	b.Update(clock.Advance(50*time.Millisecond), 50*time.Millisecond)
	assert.Equal(t, 2, mem.Len(), "delay window restarts after a flush")

	b.Update(clock.Advance(50*time.Millisecond), 50*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, mem.Messages())
}

func TestBatching_EmptyTickDoesNothing(t *testing.T) {
	clock := newManualClock()
	_, b := batchedMemory(t, 10, 10*time.Millisecond, clock)
	b.Update(clock.Advance(time.Second), time.Second)
	assert.Equal(t, uint64(0), b.Stats().Flushes)
}

func TestBatching_CloseFlushesThenClosesInner(t *testing.T) {
	mem, b := batchedMemory(t, 100, time.Hour, newManualClock())

	require.NoError(t, b.Log(event("x")))
	require.NoError(t, b.Log(event("y")))
	require.NoError(t, b.Close())

	assert.Equal(t, []string{"x", "y"}, mem.Messages())
	assert.Equal(t, 1, mem.Closed())
	assert.ErrorIs(t, b.Log(event("z")), ErrClosed)

	require.NoError(t, b.Close())
	assert.Equal(t, 1, mem.Closed(), "second Close must be a no-op")
}

func TestBatching_DelegatesPolicy(t *testing.T) {
	mem, b := batchedMemory(t, 2, time.Second, newManualClock())

	assert.Equal(t, mem.Kind(), b.Kind())
	assert.Equal(t, time.Second, b.UpdatePeriod())
	assert.Same(t, mem, b.Unwrap())

	cfg := mem.Configuration()
	cfg.MinimumLevel = "error"
	b.SetConfiguration(cfg, false)
	assert.False(t, b.IsLevelEnabled("Test", core.WarningLevel))
	assert.True(t, mem.Configuration().MinimumLevel == "error")

	b.SetConfiguration(cfg, true)
	assert.True(t, b.DebugMode())
	assert.True(t, b.IsLevelEnabled("Test", core.DebugLevel))
}

func TestBatching_ReconfigureLimits(t *testing.T) {
	mem, b := batchedMemory(t, 10, time.Second, newManualClock())
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Log(event("e")))
	}

	cfg := mem.Configuration()
	cfg.Batching.MaxCount = 2
	b.SetConfiguration(cfg, false)
	assert.Equal(t, 3, mem.Len(), "lowering the count below the buffer size flushes")

	cfg.Batching.Enabled = false
	b.SetConfiguration(cfg, false)
	require.NoError(t, b.Log(event("direct")))
	assert.Equal(t, 4, mem.Len(), "disabled batching passes events through")
}

func TestBatching_LargeMaxCountBoundsPrealloc(t *testing.T) {
	mem, b := batchedMemory(t, 1<<50, 0, newManualClock())
	assert.LessOrEqual(t, cap(b.buf), maxPrealloc)

	for i := 0; i < maxPrealloc+1; i++ {
		require.NoError(t, b.Log(event("e")))
	}
	assert.Equal(t, maxPrealloc+1, b.Len(), "buffer grows past the reserved capacity")
	assert.Equal(t, 0, mem.Len())

	cfg := mem.Configuration()
	cfg.Batching.MaxCount = 1 << 40
	assert.NotPanics(t, func() { b.SetConfiguration(cfg, false) })
	require.NoError(t, b.Close())
	assert.Equal(t, maxPrealloc+1, mem.Len())
}

func TestBatching_OwnerBoundSkipsSchedulerFlush(t *testing.T) {
	clock := newManualClock()
	mem := NewMemory("")
	mem.SetConfiguration(config.SinkConfig{
		MinimumLevel: "debug",
		Batching:     config.BatchingConfig{Enabled: true, MaxCount: 10, MaxDelay: config.Duration(100 * time.Millisecond)},
	}, false)
	b := NewBatching(mem, clock.Now)

	assert.Zero(t, b.UpdatePeriod())
	assert.Empty(t, Updaters([]Sink{b}))

	require.NoError(t, b.Log(event("a")))
	b.Update(clock.Advance(time.Second), time.Second)
	assert.Equal(t, 0, mem.Len(), "scheduler ticks must not write an owner-bound sink")

	require.NoError(t, b.Log(event("b")))
	assert.Equal(t, []string{"a", "b"}, mem.Messages(), "elapsed delay flushes on the next Log")

	require.NoError(t, b.Log(event("c")))
	require.NoError(t, b.Close())
	assert.Equal(t, []string{"a", "b", "c"}, mem.Messages())

	safe := mem.Configuration()
	safe.IsThreadSafe = true
	mem2 := NewMemory("")
	mem2.SetConfiguration(safe, false)
	b2 := NewBatching(mem2, clock.Now)
	assert.Equal(t, 100*time.Millisecond, b2.UpdatePeriod())

	b2.SetConfiguration(mem.Configuration(), false)
	assert.Zero(t, b2.UpdatePeriod(), "reconfiguring to a non thread-safe sink detaches it from the scheduler")
}

type failingSink struct {
	*Memory
}

func (f failingSink) Log(*core.Event) error { return errors.New("boom") }

func TestBatching_FlushReportsInnerErrors(t *testing.T) {
	inner := failingSink{NewMemory("")}
	cfg := MemoryDefaults()
	cfg.Batching = config.BatchingConfig{Enabled: true, MaxCount: 2}
	inner.SetConfiguration(cfg, false)
	b := NewBatching(inner, nil)

	require.NoError(t, b.Log(event("a")))
	err := b.Log(event("b"))
	require.Error(t, err)
	assert.Equal(t, uint64(2), b.Stats().Failed)
	assert.Equal(t, 0, b.Len())
}

func TestBatching_ConcurrentProducersAndTicks(t *testing.T) {
	clock := newManualClock()
	mem, b := batchedMemory(t, 7, time.Millisecond, clock)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = b.Log(event("e"))
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				b.Update(clock.Advance(time.Millisecond), time.Millisecond)
			}
		}
	}()
	wg.Wait()
	close(done)
	require.NoError(t, b.Close())
	assert.Equal(t, 800, mem.Len())
}

func TestDecorate(t *testing.T) {
	plain := NewMemory("Plain")
	batched := NewMemory("Batched")
	cfg := MemoryDefaults()
	cfg.Batching = config.BatchingConfig{Enabled: true, MaxCount: 3}
	batched.SetConfiguration(cfg, false)

	out := Decorate([]Sink{plain, batched}, nil)
	require.Len(t, out, 2)
	assert.Same(t, plain, out[0].(*Memory), "sinks without batching pass through")
	wrapped, ok := out[1].(*Batching)
	require.True(t, ok)
	assert.Same(t, batched, wrapped.Unwrap())

	assert.Len(t, Updaters(out), 0, "count-only batching has no period")
}

func TestUpdaters(t *testing.T) {
	m := NewMemory("")
	cfg := MemoryDefaults()
	cfg.Batching = config.BatchingConfig{Enabled: true, MaxDelay: config.Duration(time.Second)}
	m.SetConfiguration(cfg, false)

	out := Decorate([]Sink{NewMemory("Other"), m}, nil)
	ups := Updaters(out)
	require.Len(t, ups, 1)
	assert.Equal(t, time.Second, ups[0].UpdatePeriod())
}
