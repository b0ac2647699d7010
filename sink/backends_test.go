package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipp01105/pipelog/core"
)

func backendEvent() *core.Event {
	return &core.Event{
		Level:    core.WarningLevel,
		Category: "Db",
		Message:  "slow query",
		Err:      errors.New("deadline"),
		Attrs: &core.Attributes{
			Fields: []core.Field{
				{Key: "rows", Type: core.Int64Type, Int64: 12},
				{Key: "table", Type: core.StringType, Str: "users"},
				{Key: "took", Type: core.DurationType, Int64: int64(1500 * time.Millisecond)},
			},
			TimeUTC: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Tags:    map[string]string{"env": "dev"},
		},
	}
}

func TestKeyValues(t *testing.T) {
	kv := KeyValues(backendEvent())
	require.Len(t, kv, 10)
	assert.Equal(t, []any{KeyError, "rows", "table", "took", KeyTags}, []any{kv[0], kv[2], kv[4], kv[6], kv[8]})
	assert.Equal(t, int64(12), kv[3])
	assert.Equal(t, 1500*time.Millisecond, kv[7])

	assert.Empty(t, KeyValues(&core.Event{Message: "bare"}))
}

func TestZerolog_ForwardsEvents(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerolog(zerolog.New(&buf))
	assert.Equal(t, ZerologKind, z.Kind())

	require.NoError(t, z.Log(backendEvent()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "slow query", got["message"])
	assert.Equal(t, "Db", got["category"])
	assert.Equal(t, "deadline", got["error"])
	assert.Equal(t, float64(12), got["rows"])
	assert.Equal(t, "users", got["table"])
	assert.Equal(t, map[string]any{"env": "dev"}, got["tags"])
}

func TestZerolog_RespectsLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerolog(zerolog.New(&buf).Level(zerolog.ErrorLevel))

	require.NoError(t, z.Log(&core.Event{Level: core.InfoLevel, Message: "quiet"}))
	assert.Zero(t, buf.Len())

	require.NoError(t, z.Log(&core.Event{Level: core.ExceptionLevel, Message: "loud"}))
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestLogrus_ForwardsEvents(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.DebugLevel)

	s := NewLogrus(l)
	require.NoError(t, s.Log(backendEvent()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "warning", got["level"])
	assert.Equal(t, "slow query", got["msg"])
	assert.Equal(t, "Db", got["category"])
	assert.Equal(t, "users", got["table"])
	assert.Equal(t, "deadline", got["error"])
	assert.True(t, strings.HasPrefix(got["time"].(string), "2024-05-01T12:00:00"))
}

func TestLogrus_RespectsLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.ErrorLevel)

	require.NoError(t, NewLogrus(l).Log(&core.Event{Level: core.WarningLevel, Message: "quiet"}))
	assert.Zero(t, buf.Len())
}

func TestCharm_ForwardsEvents(t *testing.T) {
	var buf bytes.Buffer
	c := NewCharm(log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}))

	require.NoError(t, c.Log(backendEvent()))

	out := buf.String()
	assert.Contains(t, out, "Db")
	assert.Contains(t, out, "slow query")
	assert.Contains(t, out, "table=users")
	assert.Contains(t, out, "rows=12")
}

func TestCharm_RespectsLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	c := NewCharm(log.NewWithOptions(&buf, log.Options{Level: log.ErrorLevel}))

	require.NoError(t, c.Log(&core.Event{Level: core.InfoLevel, Message: "quiet"}))
	assert.Zero(t, buf.Len())
	require.NoError(t, c.Close())
}
