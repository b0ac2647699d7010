package sink

import (
	"sync"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
)

// MemoryKind is the default kind name of Memory sinks
const MemoryKind = "Memory"

// Memory keeps delivered events in memory.
type Memory struct {
	*Base
	mu     sync.Mutex
	events []*core.Event
	closes int
}

// MemoryDefaults is the built-in configuration of Memory sinks
func MemoryDefaults() config.SinkConfig {
	return config.SinkConfig{
		MinimumLevel: "debug",
		IsThreadSafe: true,
	}
}

// NewMemory creates a memory sink. An empty kind uses MemoryKind; distinct
// kinds let several memory sinks carry distinct configuration keys.
func NewMemory(kind string) *Memory {
	if kind == "" {
		kind = MemoryKind
	}
	return &Memory{Base: NewBase(kind, MemoryDefaults())}
}

// Log records the event.
func (m *Memory) Log(event *core.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closes > 0 {
		return ErrClosed
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns the delivered events in arrival order.
func (m *Memory) Events() []*core.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.Event(nil), m.events...)
}

// Messages returns the messages of the delivered events in arrival order.
func (m *Memory) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Message
	}
	return out
}

// Len returns the number of delivered events.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Reset drops recorded events.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
}

// Closed reports how many times Close was called.
func (m *Memory) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Close marks the sink closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closes++
	m.mu.Unlock()
	return nil
}
