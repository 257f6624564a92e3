package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrorEntry is one failed candidate written to the error log.
type ErrorEntry struct {
	Time  time.Time
	Err   error
	URL   string
	Title string
}

// ErrorLog is an append-only, human readable log of failed candidates. Write
// failures are reported on the regular logger and never returned to the caller.
type ErrorLog struct {
	log  *Logger
	path string
	mu   sync.Mutex
}

// NewErrorLog creates an error log appending to path. An empty path disables it.
func NewErrorLog(path string, log *Logger) *ErrorLog {
	return &ErrorLog{path: path, log: log}
}

// Append writes one entry.
func (e *ErrorLog) Append(entry ErrorEntry) {
	if e == nil || e.path == "" {
		return
	}

	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(e.path), 0755); err != nil {
		e.warn(err)
		return
	}

	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		e.warn(err)
		return
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			e.warn(closeErr)
		}
	}()

	if _, err := f.WriteString(FormatErrorEntry(entry)); err != nil {
		e.warn(err)
	}
}

func (e *ErrorLog) warn(err error) {
	if e.log != nil {
		e.log.Warn("failed to write error log", "path", e.path, "err", err)
	}
}

// FormatErrorEntry renders an entry as a block of text terminated by a blank line.
func FormatErrorEntry(entry ErrorEntry) string {
	msg := "<nil>"
	if entry.Err != nil {
		msg = fmt.Sprintf("%+v", entry.Err)
	}

	return fmt.Sprintf("[%s] %s (%s)\n%s\n\n",
		entry.Time.UTC().Format(time.RFC3339),
		entry.URL,
		entry.Title,
		msg,
	)
}
