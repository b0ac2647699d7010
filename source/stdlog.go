package source

import (
	"bytes"
	"io"
	"log"
	"sync"

	"github.com/philipp01105/pipelog/core"
	"github.com/philipp01105/pipelog/logger"
)

// StdLog routes the standard library's log package into the pipeline while
// installed. Each line written becomes one record at a fixed level.
type StdLog struct {
	ingest Ingester
	level  core.Level

	mu      sync.Mutex
	pending []byte

	prevOut   io.Writer
	prevFlags int
	once      sync.Once
}

// InstallStdLog redirects log's output to ingest. Log flags are cleared
// since the pipeline stamps its own time.
func InstallStdLog(ingest Ingester, level core.Level) *StdLog {
	s := &StdLog{
		ingest:    ingest,
		level:     level,
		prevOut:   log.Writer(),
		prevFlags: log.Flags(),
	}
	log.SetFlags(0)
	log.SetOutput(s)
	return s
}

// StdLogFactory is the Factory for the standard log bridge
func StdLogFactory(ingest Ingester) (Source, error) {
	return InstallStdLog(ingest, core.InfoLevel), nil
}

// Write implements io.Writer, ingesting every complete line in p.
func (s *StdLog) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.pending = append(s.pending, p...)
	var lines []string
	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimRight(s.pending[:i], "\r")))
		s.pending = s.pending[i+1:]
	}
	s.mu.Unlock()

	for _, line := range lines {
		s.emit(line)
	}
	return len(p), nil
}

func (s *StdLog) emit(line string) {
	if line == "" {
		return
	}
	s.ingest(logger.Record{Level: s.level, Message: line, Source: StdLogName})
}

// Close restores log's previous output and flags and emits any
// unterminated line.
func (s *StdLog) Close() error {
	s.once.Do(func() {
		log.SetOutput(s.prevOut)
		log.SetFlags(s.prevFlags)

		s.mu.Lock()
		rest := string(s.pending)
		s.pending = nil
		s.mu.Unlock()
		s.emit(rest)
	})
	return nil
}
