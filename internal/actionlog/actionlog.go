package actionlog

import (
	"io"
	"strings"
	"sync"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Line prefixes are part of the on-disk contract; operators grep for them.
const (
	RestartPrefix   = "Restarting weatherstation process:"
	DuplicatePrefix = "Removed duplicate weatherstation:"
)

// Default rotation parameters (lumberjack semantics).
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 30 // days
)

// Config describes the action log destination.
type Config struct {
	Path       string // log file path
	MaxSizeMB  int    // megabytes before rotation (default 10)
	MaxBackups int    // number of backups to keep (default 3)
	MaxAgeDays int    // days to keep (default 30)
	Compress   bool   // gzip rotated files
}

// Log is the append-only record of corrective actions. Each entry is a
// single plain-text line; the format is deliberately unstructured.
type Log struct {
	mu  sync.Mutex
	w   io.WriteCloser
	Now func() time.Time // overridable clock
}

// Open creates a Log backed by a rotating file writer.
func (c Config) Open() *Log {
	w := &lj.Logger{
		Filename:   c.Path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
	return NewWithWriter(w)
}

// NewWithWriter wraps an arbitrary writer; used for tests and embedding.
func NewWithWriter(w io.WriteCloser) *Log {
	return &Log{w: w, Now: time.Now}
}

// Restarted appends the restart record with the current timestamp.
func (l *Log) Restarted() error {
	return l.line(RestartPrefix + " " + l.Now().Format(time.UnixDate))
}

// RemovedDuplicate appends the duplicate-removal record with the
// current timestamp.
func (l *Log) RemovedDuplicate() error {
	return l.line(DuplicatePrefix + " " + l.Now().Format(time.UnixDate))
}

// Raw appends diagnostic text verbatim (e.g. a failed kill's error
// output), terminated with a newline when missing.
func (l *Log) Raw(text string) error {
	if text == "" {
		return nil
	}
	return l.line(strings.TrimRight(text, "\n"))
}

func (l *Log) line(s string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write([]byte(s + "\n"))
	return err
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Close()
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
