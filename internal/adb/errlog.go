package adb

import (
	"strings"
	"sync"
)

// ErrorLog accumulates daemon output from failed server operations so the
// text can be surfaced when the user has to decide how to proceed. Each
// connection attempt starts by clearing the log.
type ErrorLog struct {
	mu    sync.Mutex
	lines []string
}

// NewErrorLog creates an empty error log.
func NewErrorLog() *ErrorLog {
	return &ErrorLog{}
}

// Clear drops all accumulated output.
func (l *ErrorLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
}

// Append records a single line. Blank lines are dropped.
func (l *ErrorLog) Append(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

// AppendOutput records every non-blank line of a command's output.
func (l *ErrorLog) AppendOutput(output string) {
	for _, line := range strings.Split(output, "\n") {
		l.Append(line)
	}
}

// Lines returns a copy of the accumulated lines.
func (l *ErrorLog) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// String returns the accumulated output as one newline-joined block.
func (l *ErrorLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

// Empty reports whether anything has been recorded.
func (l *ErrorLog) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines) == 0
}
