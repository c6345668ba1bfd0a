package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels accepted by the logger.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogFileName is the name of the log file inside a log directory.
const LogFileName = "sdkbridge.log"

// slogLevels maps level strings to their slog equivalents. Keys are the
// Level* constants.
var slogLevels = map[string]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// Logger writes JSON log entries and carries a set of persistent
// attributes that child loggers extend. Safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	file   *os.File
	rot    *RotatingWriter
	mu     sync.Mutex  // serializes Close against itself
	attrs  []slog.Attr // component, serial, attempt, and friends
}

// NewLogger returns a Logger appending to {logDir}/sdkbridge.log,
// creating the directory as needed. Entries below level are dropped.
// An empty logDir sends entries to stderr instead of a file.
func NewLogger(logDir string, level string) (*Logger, error) {
	if logDir == "" {
		return newLogger(os.Stderr, level), nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(logDir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := newLogger(file, level)
	l.file = file
	return l, nil
}

// NewLoggerWithRotation is NewLogger with size-based rotation of the log
// file, per config. An empty logDir falls back to plain stderr logging.
func NewLoggerWithRotation(logDir string, level string, config RotationConfig) (*Logger, error) {
	if logDir == "" {
		return NewLogger("", level)
	}

	rot, err := NewRotatingWriter(filepath.Join(logDir, LogFileName), config)
	if err != nil {
		return nil, err
	}

	l := newLogger(rot, level)
	l.rot = rot
	return l, nil
}

// newLogger builds the slog plumbing around a sink.
func newLogger(sink io.Writer, level string) *Logger {
	h := slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{logger: slog.New(h)}
}

// parseLevel maps a level string to its slog level, defaulting unknown
// strings to info.
func parseLevel(level string) slog.Level {
	if l, ok := slogLevels[strings.ToUpper(level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// WithComponent returns a child logger tagging entries with a subsystem
// name: "sdk", "bridge", "adb", "cmd".
func (l *Logger) WithComponent(component string) *Logger {
	return l.withAttr(slog.String("component", component))
}

// WithSerial returns a child logger tagging entries with a device
// serial.
func (l *Logger) WithSerial(serial string) *Logger {
	return l.withAttr(slog.String("serial", serial))
}

// WithAttempt returns a child logger tagging entries with a connection
// attempt number.
func (l *Logger) WithAttempt(attempt int) *Logger {
	return l.withAttr(slog.Int("attempt", attempt))
}

// With returns a child logger carrying arbitrary alternating key-value
// pairs on top of the existing attributes. Keys that are not strings
// are dropped along with their values.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}

	attrs := append([]slog.Attr(nil), l.attrs...)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			attrs = append(attrs, slog.Any(key, args[i+1]))
		}
	}
	return l.clone(attrs)
}

func (l *Logger) withAttr(attr slog.Attr) *Logger {
	attrs := append([]slog.Attr(nil), l.attrs...)
	return l.clone(append(attrs, attr))
}

// clone shares the sink and handler; only the attribute set differs
// between parent and child.
func (l *Logger) clone(attrs []slog.Attr) *Logger {
	return &Logger{
		logger: l.logger,
		file:   l.file,
		rot:    l.rot,
		attrs:  attrs,
	}
}

// Debug logs at DEBUG level with alternating key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

// Info logs at INFO level with alternating key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

// Warn logs at WARN level with alternating key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

// Error logs at ERROR level with alternating key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

// log emits one entry, persistent attributes first so per-call args can
// shadow them in downstream processing.
func (l *Logger) log(level slog.Level, msg string, args ...any) {
	kv := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		kv = append(kv, attr.Key, attr.Value.Any())
	}
	kv = append(kv, args...)

	l.logger.Log(context.Background(), level, msg, kv...)
}

// Close flushes and closes the underlying sink. Closing a stderr logger
// or an already-closed one is a no-op.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rot != nil {
		rot := l.rot
		l.rot = nil
		return rot.Close()
	}
	if l.file == nil {
		return nil
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// NopLogger returns a Logger that discards everything. Tests use it to
// satisfy logger parameters without touching the filesystem.
func NopLogger() *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// DefaultLogDir returns the state directory for sdkbridge logs:
// $XDG_STATE_HOME/sdkbridge when set, else ~/.local/state/sdkbridge.
func DefaultLogDir() (string, error) {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "sdkbridge"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "sdkbridge"), nil
}

// ParseLevel normalizes a level string to one of the Level* constants,
// defaulting unknown strings to LevelInfo.
func ParseLevel(level string) string {
	s := strings.ToUpper(level)
	if _, ok := slogLevels[s]; ok {
		return s
	}
	return LevelInfo
}

// ValidLevels returns the accepted level strings in severity order.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
