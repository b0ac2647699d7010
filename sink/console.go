package sink

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
	"github.com/philipp01105/pipelog/formatter"
)

// ConsoleKind is the kind name of Console sinks
const ConsoleKind = "Console"

// Console writes formatted events to a writer
type Console struct {
	*Base
	writer          io.Writer
	formatter       formatter.Formatter
	bufferFormatter formatter.BufferFormatter
	stats           *Stats
	mu              sync.Mutex // protects buf and writer
	buf             bytes.Buffer
	closed          bool
}

// ConsoleConfig holds configuration for console sink
type ConsoleConfig struct {
	// Writer to write to (default: os.Stdout)
	Writer io.Writer
	// Formatter to use (default: TextFormatter, coloured on terminals)
	Formatter formatter.Formatter
	// NoColor disables terminal colour detection for the default formatter
	NoColor bool
}

// ConsoleDefaults is the built-in configuration of Console sinks
func ConsoleDefaults() config.SinkConfig {
	return config.SinkConfig{
		MinimumLevel: "info",
		IsThreadSafe: true,
		StackTrace:   config.StackTraceConfig{MinimumLevel: "exception"},
	}
}

// NewConsole creates a new console sink
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Formatter == nil {
		cfg.Formatter = formatter.NewTextFormatter(formatter.Config{
			Color: !cfg.NoColor && shouldColorize(cfg.Writer),
		})
	}

	c := &Console{
		Base:      NewBase(ConsoleKind, ConsoleDefaults()),
		writer:    cfg.Writer,
		formatter: cfg.Formatter,
		stats:     NewStats(),
	}
	// Cache BufferFormatter for the sink-owned buffer path
	c.bufferFormatter, _ = cfg.Formatter.(formatter.BufferFormatter)
	return c
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Log formats and writes an event
func (c *Console) Log(event *core.Event) error {
	if c.bufferFormatter != nil {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		c.buf.Reset()
		c.bufferFormatter.FormatEvent(event, &c.buf)
		_, err := c.writer.Write(c.buf.Bytes())
		c.mu.Unlock()
		c.record(event.Level, err)
		return err
	}

	data, err := c.formatter.Format(event)
	if err != nil {
		c.stats.IncrementFailed()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	_, err = c.writer.Write(data)
	c.mu.Unlock()
	c.record(event.Level, err)
	return err
}

func (c *Console) record(level core.Level, err error) {
	if err != nil {
		c.stats.IncrementFailed()
		return
	}
	c.stats.IncrementProcessed(level)
}

// Stats returns a snapshot of the current statistics
func (c *Console) Stats() Snapshot {
	return c.stats.GetSnapshot()
}

// Close stops further writes. The writer itself is owned by the caller.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
