// Package audit records gate decisions as JSON Lines.
//
// Each allow or deny the firewall makes can be appended to one file; the
// file is rotated by size and read back by the audit-log command.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Gate names the checkpoint that made a decision.
type Gate string

const (
	GateResolve Gate = "resolve"
	GateConnect Gate = "connect"
	GateReload  Gate = "reload"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Gate      Gate      `json:"gate"`
	Target    string    `json:"target"`
	Port      uint16    `json:"port,omitempty"`
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason,omitempty"`
}

// Recorder receives decisions. The firewall engine calls Record on every
// gate decision, so implementations must be safe for concurrent use.
type Recorder interface {
	Record(event Event)
}

const (
	defaultMaxSize = 50 * 1024 * 1024 // 50 MiB
	keepFiles      = 3                // keep current + 3 rotated files
)

// Logger appends events to a file with size-based rotation.
type Logger struct {
	path    string
	maxSize int64
	file    *os.File
	size    int64
	mu      sync.Mutex
	logger  *slog.Logger
}

// Option configures a Logger
type Option func(*Logger)

// WithMaxSize sets the size in bytes that triggers rotation (0 = never).
func WithMaxSize(n int64) Option {
	return func(l *Logger) {
		l.maxSize = n
	}
}

// WithLogger sets the logger used for write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.logger = logger
	}
}

// Open opens (or creates) the audit log at path for appending.
func Open(path string, opts ...Option) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	l := &Logger{
		path:    path,
		maxSize: defaultMaxSize,
		file:    f,
		size:    size,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Path returns the file the logger appends to.
func (l *Logger) Path() string {
	return l.path
}

// Record appends event, stamping it if needed. Failures are logged, not returned.
func (l *Logger) Record(event Event) {
	if err := l.Log(event); err != nil {
		l.logger.Warn("audit log write failed", "error", err)
	}
}

// Log appends event to the file.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("audit log closed")
	}
	n, err := l.file.Write(append(data, '\n'))
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	l.size += int64(n)
	if l.maxSize > 0 && l.size >= l.maxSize {
		l.rotate()
	}
	return nil
}

func (l *Logger) rotate() {
	l.file.Close()

	// Shift existing rotated files: .3 -> deleted, .2 -> .3, .1 -> .2, current -> .1
	for i := keepFiles; i > 0; i-- {
		old := fmt.Sprintf("%s.%d", l.path, i)
		if i == keepFiles {
			os.Remove(old)
		}
		if i > 1 {
			prev := fmt.Sprintf("%s.%d", l.path, i-1)
			os.Rename(prev, old)
		} else {
			os.Rename(l.path, old)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		l.logger.Warn("audit log rotation failed", "error", err)
		l.file = nil
		return
	}
	l.file = f
	l.size = 0
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadEvents reads all events from the log at path in file order.
// A missing file yields no events.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Memory keeps events in memory for tests and embedders that inspect
// decisions in process.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// Record implements Recorder.
func (m *Memory) Record(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns a copy of the recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
