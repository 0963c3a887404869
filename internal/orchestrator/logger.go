package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// debugLogRelPath is where per-project debug logs live, relative to the
// project root.
var debugLogRelPath = filepath.Join(".loom", "logs", "orchestrator-debug.log")

// DebugLogger appends timestamped lines to a per-project log file. A zero
// DebugLogger (or nil) discards everything, so callers never guard their
// log calls.
type DebugLogger struct {
	mu sync.Mutex
	f  *os.File
}

// NewDebugLogger opens (or creates) the log file at path, creating parent
// directories as needed. An empty path yields a discarding logger.
func NewDebugLogger(path string) (*DebugLogger, error) {
	if path == "" {
		return &DebugLogger{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	l := &DebugLogger{f: f}
	l.Log("--- session started %s ---", time.Now().Format(time.RFC3339))
	return l, nil
}

// NewDebugLoggerForProject opens the standard debug log under the project's
// .loom/logs directory, falling back to a discarding logger when the file
// cannot be opened.
func NewDebugLoggerForProject(projectRoot string) *DebugLogger {
	l, err := NewDebugLogger(filepath.Join(projectRoot, debugLogRelPath))
	if err != nil {
		return &DebugLogger{}
	}
	return l
}

// NopLogger returns a logger that discards everything.
func NopLogger() *DebugLogger { return &DebugLogger{} }

// Log appends one formatted, timestamped line, synced per write.
func (l *DebugLogger) Log(format string, args ...any) {
	if l == nil || l.f == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.f, "[%s] %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
	l.f.Sync()
}

// Close closes the underlying file. Safe on a discarding logger.
func (l *DebugLogger) Close() error {
	if l == nil || l.f == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
