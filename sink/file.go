package sink

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/core"
	"github.com/philipp01105/pipelog/formatter"
)

// FileKind is the kind name of File sinks
const FileKind = "File"

// sizeTrackingWriter wraps an io.Writer and tracks total bytes written
type sizeTrackingWriter struct {
	w       io.Writer
	written int64
}

func (s *sizeTrackingWriter) Write(p []byte) (n int, err error) {
	n, err = s.w.Write(p)
	s.written += int64(n)
	return
}

func (s *sizeTrackingWriter) reset(w io.Writer) {
	s.w = w
	s.written = 0
}

// File writes formatted events to a file with optional rotation.
type File struct {
	*Base
	filename        string
	file            *os.File
	lock            *flock.Flock
	bufWriter       *bufio.Writer
	sizeWriter      *sizeTrackingWriter
	formatter       formatter.Formatter
	bufferFormatter formatter.BufferFormatter
	mu              sync.Mutex
	syncBuf         bytes.Buffer
	maxSize         int64
	maxBackups      int
	rotateInterval  time.Duration
	compress        bool
	compression     Compression
	currentSize     int64
	lastRotateTime  time.Time
	hasRotation     bool
	stats           *Stats
	closed          bool
}

// FileConfig holds configuration for file sink
type FileConfig struct {
	// Filename is the path to the log file
	Filename string
	// Formatter to use (default: JSONFormatter)
	Formatter formatter.Formatter
	// MaxSize is the maximum size in bytes before rotation (0 = no size rotation)
	MaxSize int64
	// MaxBackups is the maximum number of old log files to retain (0 = keep all)
	MaxBackups int
	// RotateInterval is the interval for time-based rotation (0 = no interval rotation)
	RotateInterval time.Duration
	// Compress compresses rotated backups
	Compress bool
	// Compression selects the codec for Compress (default: CompressionGzip)
	Compression Compression
}

// Compression names a codec for rotated backups
type Compression string

const (
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// extension returns the file suffix for c
func (c Compression) extension() string {
	if c == CompressionZstd {
		return ".zst"
	}
	return ".gz"
}

// FileDefaults is the built-in configuration of File sinks
func FileDefaults() config.SinkConfig {
	return config.SinkConfig{
		MinimumLevel: "debug",
		IsThreadSafe: true,
		Batching: config.BatchingConfig{
			Enabled:  true,
			MaxCount: 64,
			MaxDelay: config.Duration(time.Second),
		},
		StackTrace: config.StackTraceConfig{MinimumLevel: "error"},
	}
}

// NewFile opens (or creates) the log file and takes an exclusive lock on
// "<Filename>.lock" so that only one process writes it.
func NewFile(cfg FileConfig) (*File, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("filename is required")
	}
	if cfg.Formatter == nil {
		cfg.Formatter = formatter.NewJSONFormatter(formatter.Config{})
	}
	switch cfg.Compression {
	case "":
		cfg.Compression = CompressionGzip
	case CompressionGzip, CompressionZstd:
	default:
		return nil, fmt.Errorf("unknown compression %q", cfg.Compression)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}

	lock := flock.New(cfg.Filename + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock log file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("log file %s is in use by another process", cfg.Filename)
	}

	file, err := os.OpenFile(cfg.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open log file: %w", err), lock.Unlock())
	}

	info, err := file.Stat()
	if err != nil {
		return nil, multierr.Combine(err, file.Close(), lock.Unlock())
	}

	sw := &sizeTrackingWriter{w: file}
	f := &File{
		Base:           NewBase(FileKind, FileDefaults()),
		filename:       cfg.Filename,
		file:           file,
		lock:           lock,
		sizeWriter:     sw,
		bufWriter:      bufio.NewWriterSize(sw, 4096),
		formatter:      cfg.Formatter,
		maxSize:        cfg.MaxSize,
		maxBackups:     cfg.MaxBackups,
		rotateInterval: cfg.RotateInterval,
		compress:       cfg.Compress,
		compression:    cfg.Compression,
		currentSize:    info.Size(),
		lastRotateTime: time.Now(),
		hasRotation:    cfg.MaxSize > 0 || cfg.RotateInterval > 0,
		stats:          NewStats(),
	}
	f.bufferFormatter, _ = cfg.Formatter.(formatter.BufferFormatter)
	return f, nil
}

// Log formats and writes an event to the buffered file writer.
func (f *File) Log(event *core.Event) error {
	var data []byte
	if f.bufferFormatter == nil {
		var err error
		if data, err = f.formatter.Format(event); err != nil {
			f.stats.IncrementFailed()
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if err := f.rotateIfNeeded(); err != nil {
		f.stats.IncrementFailed()
		return err
	}

	if f.bufferFormatter != nil {
		f.syncBuf.Reset()
		f.bufferFormatter.FormatEvent(event, &f.syncBuf)
		data = f.syncBuf.Bytes()
	}

	n, err := f.bufWriter.Write(data)
	if err != nil {
		f.stats.IncrementFailed()
		return err
	}
	f.currentSize += int64(n)
	f.stats.IncrementProcessed(event.Level)
	return nil
}

// Sync flushes buffered data to disk.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	if err := f.bufWriter.Flush(); err != nil {
		return err
	}
	return f.file.Sync()
}

// rotateIfNeeded checks and performs rotation if needed
func (f *File) rotateIfNeeded() error {
	if !f.hasRotation {
		return nil
	}

	needRotate := false

	// Check size-based rotation
	if f.maxSize > 0 && f.currentSize >= f.maxSize {
		needRotate = true
	}

	// Check interval-based rotation
	if f.rotateInterval > 0 && time.Since(f.lastRotateTime) >= f.rotateInterval {
		needRotate = true
	}

	if !needRotate {
		return nil
	}

	return f.rotate()
}

// rotate performs the actual file rotation
func (f *File) rotate() error {
	// Flush buffered writer, sync and close current file
	if err := f.bufWriter.Flush(); err != nil {
		return err
	}
	if err := f.file.Sync(); err != nil {
		return err
	}
	if err := f.file.Close(); err != nil {
		return err
	}

	// Rename current file with timestamp
	timestamp := time.Now().Format("2006-01-02T15-04-05.000000000")
	rotatedName := fmt.Sprintf("%s.%s", f.filename, timestamp)

	if err := os.Rename(f.filename, rotatedName); err != nil {
		// If rename fails, try to reopen the original file
		file, openErr := os.OpenFile(f.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if openErr != nil {
			return fmt.Errorf("rotation failed: %v, reopen failed: %v", err, openErr)
		}
		f.file = file
		f.sizeWriter.reset(file)
		f.bufWriter.Reset(f.sizeWriter)
		return err
	}

	if f.compress {
		if err := compressFile(rotatedName, f.compression); err != nil {
			f.stats.IncrementFailed()
		}
	}

	// Clean up old backups if needed
	if f.maxBackups > 0 {
		f.cleanupOldBackups()
	}

	// Open new file
	file, err := os.OpenFile(f.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	f.file = file
	f.sizeWriter.reset(file)
	f.bufWriter.Reset(f.sizeWriter)
	f.currentSize = 0
	f.lastRotateTime = time.Now()

	return nil
}

// compressFile replaces path with a compressed copy named path plus the
// codec's extension.
func compressFile(path string, codec Compression) (err error) {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	target := path + codec.extension()
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(target)
		}
	}()

	var zw io.WriteCloser
	switch codec {
	case CompressionZstd:
		enc, encErr := zstd.NewWriter(dst)
		if encErr != nil {
			return multierr.Append(encErr, dst.Close())
		}
		zw = enc
	default:
		gz := gzip.NewWriter(dst)
		gz.Name = filepath.Base(path)
		zw = gz
	}

	if _, err = io.Copy(zw, src); err != nil {
		return multierr.Combine(err, zw.Close(), dst.Close())
	}
	if err = multierr.Combine(zw.Close(), dst.Close()); err != nil {
		return err
	}
	return os.Remove(path)
}

// backupPrefix is the name prefix shared by rotated backups
func (f *File) backupPrefix() string {
	return filepath.Base(f.filename) + "."
}

// cleanupOldBackups removes old backup files based on MaxBackups
func (f *File) cleanupOldBackups() {
	dir := filepath.Dir(f.filename)
	prefix := f.backupPrefix()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	// Rotated names embed a sortable timestamp, so name order is age order
	var backups []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || strings.HasSuffix(name, ".lock") {
			continue
		}
		backups = append(backups, filepath.Join(dir, name))
	}
	sort.Strings(backups)

	// Remove oldest files if we exceed MaxBackups
	if len(backups) > f.maxBackups {
		for _, path := range backups[:len(backups)-f.maxBackups] {
			if err := os.Remove(path); err != nil {
				return
			}
		}
	}
}

// Stats returns a snapshot of the current statistics
func (f *File) Stats() Snapshot {
	return f.stats.GetSnapshot()
}

// Close flushes, syncs and closes the file and releases the lock.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	err := f.bufWriter.Flush()
	err = multierr.Append(err, f.file.Sync())
	err = multierr.Append(err, f.file.Close())
	err = multierr.Append(err, f.lock.Unlock())
	return err
}
