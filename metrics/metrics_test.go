package metrics

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
	"github.com/philipp01105/pipelog/sink"
)

func event(level core.Level, msg string) *core.Event {
	return &core.Event{Level: level, Category: "Test", Message: msg, Attrs: &core.Attributes{}}
}

func batched(t *testing.T, maxCount int) (*sink.Memory, *sink.Batching) {
	t.Helper()
	mem := sink.NewMemory("Buffered")
	cfg := sink.MemoryDefaults()
	cfg.Batching = config.BatchingConfig{Enabled: true, MaxCount: maxCount}
	mem.SetConfiguration(cfg, false)
	return mem, sink.NewBatching(mem, nil)
}

func TestCollector_BatchingSink(t *testing.T) {
	_, b := batched(t, 2)
	require.NoError(t, b.Log(event(core.InfoLevel, "a")))
	require.NoError(t, b.Log(event(core.ErrorLevel, "b")))
	require.NoError(t, b.Log(event(core.InfoLevel, "c")))

	c := NewCollector(func() []sink.Sink { return []sink.Sink{b} })

	expected := `
# HELP pipelog_sink_buffered_events Events held by a batching sink awaiting flush.
# TYPE pipelog_sink_buffered_events gauge
pipelog_sink_buffered_events{index="0",sink="Buffered"} 1
# HELP pipelog_sink_flushes_total Buffer flushes performed by a sink.
# TYPE pipelog_sink_flushes_total counter
pipelog_sink_flushes_total{index="0",sink="Buffered"} 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"pipelog_sink_buffered_events", "pipelog_sink_flushes_total"))

	assert.Equal(t, 5+1, testutil.CollectAndCount(c, "pipelog_sink_events_total", "pipelog_sink_failures_total"))
}

func TestCollector_ConsoleCountsByLevel(t *testing.T) {
	var buf bytes.Buffer
	console := sink.NewConsole(sink.ConsoleConfig{Writer: &buf})
	require.NoError(t, console.Log(event(core.WarningLevel, "w")))
	require.NoError(t, console.Log(event(core.WarningLevel, "w")))
	require.NoError(t, console.Log(event(core.InfoLevel, "i")))

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(func() []sink.Sink { return []sink.Sink{console} }))

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "pipelog_sink_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "level" {
					counts[lp.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 2.0, counts["warning"])
	assert.Equal(t, 1.0, counts["info"])
	assert.Equal(t, 0.0, counts["debug"])
}

func TestCollector_DuplicateKindsDoNotCollide(t *testing.T) {
	_, a := batched(t, 4)
	_, b := batched(t, 4)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(func() []sink.Sink { return []sink.Sink{a, b} }))

	_, err := reg.Gather()
	assert.NoError(t, err)
}

func TestCollector_NoSinks(t *testing.T) {
	assert.Equal(t, 0, testutil.CollectAndCount(NewCollector(func() []sink.Sink { return nil })))
	assert.Equal(t, 0, testutil.CollectAndCount(NewCollector(nil)))
}

func TestServer_ServesRegistry(t *testing.T) {
	_, b := batched(t, 8)
	require.NoError(t, b.Log(event(core.InfoLevel, "x")))

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(func() []sink.Sink { return []sink.Sink{b} }))

	srv := NewServer("127.0.0.1:0", reg, nil)
	require.NoError(t, srv.Start())
	assert.Error(t, srv.Start(), "second start must fail")

	resp, err := http.Get("http://" + srv.Addr() + DefaultPath)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pipelog_sink_buffered_events{index="0",sink="Buffered"} 1`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := NewServer("127.0.0.1:0", prometheus.NewRegistry(), nil)
	assert.NoError(t, srv.Shutdown(context.Background()))
	assert.Equal(t, "127.0.0.1:0", srv.Addr())
}
