// Package eventlog is the operator's append-only text log. Every entry is
// written as "<timestamp>  <message>"; the file is opened, appended and
// closed on each write so no handle is held between entries.
package eventlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// TimestampFormat is the layout used to stamp each line.
const TimestampFormat = "2006-01-02 15:04:05"

// Logger appends entries to a durable sink.
type Logger interface {
	Log(at time.Time, message string) error
}

// File appends to a text file, creating it on first use.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a logger writing to path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the log file location.
func (f *File) Path() string {
	return f.path
}

// Log appends one entry.
func (f *File) Log(at time.Time, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	if _, err := fh.WriteString(FormatLine(at, message)); err != nil {
		fh.Close()
		return fmt.Errorf("write event log: %w", err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}
	return nil
}

// FormatLine renders one log line including the trailing newline.
// Newlines inside message are flattened so every entry stays on one line.
func FormatLine(at time.Time, message string) string {
	message = strings.ReplaceAll(message, "\n", " ")
	return at.Format(TimestampFormat) + "  " + message + "\n"
}

// Fake records entries in memory.
type Fake struct {
	mu      sync.Mutex
	Entries []string
	Err     error
}

// Log implements Logger.
func (f *Fake) Log(at time.Time, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Entries = append(f.Entries, strings.TrimSuffix(FormatLine(at, message), "\n"))
	return nil
}

// Lines returns a copy of the recorded entries.
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Entries...)
}
