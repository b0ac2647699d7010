package diag

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWithConfig_WritesConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig(Config{Output: &buf, Level: zapcore.InfoLevel})

	log.Debug("hidden")
	log.Warn("no configuration found for sink", zap.String("sink", "Console"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug diagnostic written at info level: %s", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "pipelog") {
		t.Errorf("Expected level and logger name in output, got: %s", out)
	}
	if !strings.Contains(out, `"sink": "Console"`) {
		t.Errorf("Expected sink field in output, got: %s", out)
	}
}

func TestNewWithConfig_Samples(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig(Config{Output: &buf, Level: zapcore.InfoLevel, SampleFirst: 2, SampleThereafter: 1000})

	for i := 0; i < 50; i++ {
		log.Warn("dropped event")
	}

	if n := strings.Count(buf.String(), "dropped event"); n != 2 {
		t.Errorf("Expected 2 sampled lines, got %d", n)
	}
}
