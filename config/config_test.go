package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipp01105/pipelog/core"
)

const sampleTOML = `
tick_floor = "250ms"
default_category = "App"

[sources]
slog = true

[sinks.ConsoleConfig]
minimum_level = "warning"
is_thread_safe = true

[sinks.ConsoleConfig.category_levels]
Network = "debug"

[sinks.ConsoleConfig.batching]
enabled = true
max_count = 5
max_delay = "100ms"

[sinks.ConsoleConfig.debug_mode]
enabled = true
allowed_device_ids = ["device-a"]

[sinks.ConsoleConfig.stack_trace]
minimum_level = "error"
categories = ["Network"]
`

func TestDecode(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, s.TickFloor.Std())
	assert.Equal(t, "App", s.DefaultCategory)
	assert.True(t, s.Sources.Slog)
	assert.False(t, s.Sources.StdLog)

	cfg, ok := s.Sinks["ConsoleConfig"]
	require.True(t, ok)
	assert.True(t, cfg.IsThreadSafe)
	assert.True(t, cfg.Batching.Enabled)
	assert.Equal(t, 5, cfg.Batching.MaxCount)
	assert.Equal(t, 100*time.Millisecond, cfg.Batching.MaxDelay.Std())
	assert.Equal(t, []string{"device-a"}, cfg.DebugMode.AllowedDeviceIDs)
}

func TestDecode_Defaults(t *testing.T) {
	s, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultTickFloor, s.TickFloor)
	assert.Equal(t, DefaultCategory, s.DefaultCategory)
	assert.NotNil(t, s.Sinks)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", "bogus = 1", "parse config"},
		{"bad duration", "tick_floor = \"soon\"", "parse config"},
		{"bad level", "[sinks.XConfig]\nminimum_level = \"loud\"", "unknown level"},
		{"batching without trigger", "[sinks.XConfig.batching]\nenabled = true", "without max_count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	s, err := FileSource{Path: filepath.Join(dir, "missing.toml")}.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultCategory, s.DefaultCategory)

	_, err = FileSource{Path: filepath.Join(dir, "missing.toml"), Required: true}.Load()
	require.Error(t, err)

	path := filepath.Join(dir, "pipelog.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o644))
	s, err = FileSource{Path: path, Required: true}.Load()
	require.NoError(t, err)
	assert.Contains(t, s.Sinks, "ConsoleConfig")
}

const sampleYAML = `tick_floor: 250ms
default_category: App
sources:
  std_log: true
sinks:
  ConsoleConfig:
    minimum_level: warning
    is_thread_safe: true
    batching:
      enabled: true
      max_count: 10
      max_delay: 100ms
`

func TestFileSource_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipelog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	s, err := FileSource{Path: path, Required: true}.Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, s.TickFloor.Std())
	assert.Equal(t, "App", s.DefaultCategory)
	assert.True(t, s.Sources.StdLog)
	console := s.Sinks["ConsoleConfig"]
	assert.Equal(t, "warning", console.MinimumLevel)
	assert.Equal(t, 100*time.Millisecond, console.Batching.MaxDelay.Std())
}

func TestDecodeYAML_RejectsUnknownFields(t *testing.T) {
	_, err := DecodeYAML(strings.NewReader("tick_flor: 1s\n"))
	require.Error(t, err)
}

func TestDecodeYAML_Empty(t *testing.T) {
	s, err := DecodeYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultTickFloor, s.TickFloor)
}

func TestEncodeYAMLRoundTrip(t *testing.T) {
	s := Default()
	s.Sinks["FileConfig"] = SinkConfig{
		MinimumLevel: "info",
		Batching:     BatchingConfig{Enabled: true, MaxCount: 5, MaxDelay: Duration(2 * time.Second)},
	}
	var b strings.Builder
	require.NoError(t, EncodeYAML(&b, &s))
	assert.Contains(t, b.String(), "max_delay: 2s")

	back, err := DecodeYAML(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, s.Sinks["FileConfig"].Batching, back.Sinks["FileConfig"].Batching)
}

func TestIsYAML(t *testing.T) {
	assert.True(t, IsYAML("a/b.yml"))
	assert.True(t, IsYAML("C.YAML"))
	assert.False(t, IsYAML("pipelog.toml"))
}

func TestEncodeRoundTripsDurations(t *testing.T) {
	s := Default()
	s.Sinks["FileConfig"] = SinkConfig{
		MinimumLevel: "info",
		Batching:     BatchingConfig{Enabled: true, MaxDelay: Duration(2 * time.Second)},
	}
	var b strings.Builder
	require.NoError(t, Encode(&b, &s))
	assert.Contains(t, b.String(), "2s")

	back, err := Decode(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, back.Sinks["FileConfig"].Batching.MaxDelay.Std())
}

func TestStaticCopiesMapping(t *testing.T) {
	in := Settings{Sinks: map[string]SinkConfig{
		"AConfig": {MinimumLevel: "debug", CategoryLevels: map[string]string{"x": "error"}},
	}}
	src := Static(in)
	s, err := src.Load()
	require.NoError(t, err)

	s.Sinks["AConfig"].CategoryLevels["x"] = "debug"
	assert.Equal(t, "error", in.Sinks["AConfig"].CategoryLevels["x"])
	assert.Equal(t, DefaultTickFloor, s.TickFloor)
}

func TestSinkConfig_Threshold(t *testing.T) {
	cfg := SinkConfig{
		MinimumLevel:   "warning",
		CategoryLevels: map[string]string{"Network": "debug"},
	}
	assert.Equal(t, core.WarningLevel, cfg.Threshold("UI", false))
	assert.Equal(t, core.DebugLevel, cfg.Threshold("Network", false))
	assert.Equal(t, core.DebugLevel, cfg.Threshold("UI", true))

	cfg.DebugMode.MinimumLevel = "info"
	assert.Equal(t, core.InfoLevel, cfg.Threshold("UI", true))

	assert.Equal(t, core.InfoLevel, SinkConfig{}.Threshold("any", false))
}

func TestSinkConfig_WantsStackTrace(t *testing.T) {
	cfg := SinkConfig{}
	assert.False(t, cfg.WantsStackTrace("A", core.ExceptionLevel))

	cfg.StackTrace.MinimumLevel = "error"
	assert.False(t, cfg.WantsStackTrace("A", core.WarningLevel))
	assert.True(t, cfg.WantsStackTrace("A", core.ErrorLevel))

	cfg.StackTrace.Categories = []string{"B"}
	assert.False(t, cfg.WantsStackTrace("A", core.ErrorLevel))
	assert.True(t, cfg.WantsStackTrace("B", core.ExceptionLevel))
}

func TestSinkConfig_DeviceAllowed(t *testing.T) {
	cfg := SinkConfig{DebugMode: DebugModeConfig{AllowedDeviceIDs: []string{"ABC"}}}
	assert.False(t, cfg.DeviceAllowed("abc"), "disabled debug mode must not match")

	cfg.DebugMode.Enabled = true
	assert.True(t, cfg.DeviceAllowed("abc"))
	assert.False(t, cfg.DeviceAllowed("other"))
	assert.False(t, cfg.DeviceAllowed(""))

	cfg.DebugMode.AllowedDeviceIDs = nil
	assert.False(t, cfg.DeviceAllowed("abc"))
}
