package logging

// Log aggregation: reading a log directory back into structured
// entries, filtering them, and exporting to other formats for
// analysis.

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LogEntry is one decoded line of the JSON log. Fields the logger
// emits itself are typed; everything else lands in Attrs.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	Serial    string         `json:"serial,omitempty"`
	Attempt   int            `json:"attempt,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter selects a subset of entries. Zero-valued fields do not
// constrain the result; set fields combine with AND.
type LogFilter struct {
	Level           string    // keep entries at or above this level
	StartTime       time.Time // keep entries at or after this instant
	EndTime         time.Time // keep entries at or before this instant
	Component       string    // exact component match
	Serial          string    // exact serial match
	MessageContains string    // substring match on the message
}

// levelRank orders levels for threshold filtering.
var levelRank = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// AggregateLogs reads the log file under logDir and returns its entries
// sorted by timestamp.
func AggregateLogs(logDir string) ([]LogEntry, error) {
	file, err := os.Open(filepath.Join(logDir, LogFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file found in log directory: %w", err)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	entries, err := scanEntries(file)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// scanEntries decodes one entry per line, dropping blank and
// unparseable lines so a truncated or partially corrupted log still
// yields what it can.
func scanEntries(r io.Reader) ([]LogEntry, error) {
	scanner := bufio.NewScanner(r)
	// Entries with large attrs can exceed the default 64KB token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var entries []LogEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := ParseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return entries, nil
}

// ParseLogEntry decodes a single JSON log line. Known fields populate
// the typed LogEntry fields; the rest is collected under Attrs.
func ParseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := LogEntry{
		Level:     stringField(raw, "level"),
		Message:   stringField(raw, "msg"),
		Component: stringField(raw, "component"),
		Serial:    stringField(raw, "serial"),
	}
	if ts, err := time.Parse(time.RFC3339Nano, stringField(raw, "time")); err == nil {
		entry.Timestamp = ts
	}
	// JSON numbers decode as float64
	if n, ok := raw["attempt"].(float64); ok {
		entry.Attempt = int(n)
	}

	for _, k := range []string{"time", "level", "msg", "component", "serial", "attempt"} {
		delete(raw, k)
	}
	entry.Attrs = raw
	return entry, nil
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// FilterLogs returns the entries matching filter. A zero filter keeps
// everything.
func FilterLogs(entries []LogEntry, filter LogFilter) []LogEntry {
	if filter == (LogFilter{}) {
		return entries
	}

	var kept []LogEntry
	for _, entry := range entries {
		if MatchesFilter(entry, filter) {
			kept = append(kept, entry)
		}
	}
	return kept
}

// MatchesFilter reports whether entry satisfies every constraint set on
// filter.
func MatchesFilter(entry LogEntry, filter LogFilter) bool {
	if !levelAtLeast(entry.Level, filter.Level) {
		return false
	}
	if !filter.StartTime.IsZero() && entry.Timestamp.Before(filter.StartTime) {
		return false
	}
	if !filter.EndTime.IsZero() && entry.Timestamp.After(filter.EndTime) {
		return false
	}
	if filter.Component != "" && entry.Component != filter.Component {
		return false
	}
	if filter.Serial != "" && entry.Serial != filter.Serial {
		return false
	}
	if filter.MessageContains != "" && !strings.Contains(entry.Message, filter.MessageContains) {
		return false
	}
	return true
}

// levelAtLeast reports whether level sits at or above min in the
// DEBUG < INFO < WARN < ERROR ordering. Levels outside that set pass
// through unfiltered.
func levelAtLeast(level, min string) bool {
	if min == "" {
		return true
	}
	lr, lok := levelRank[level]
	mr, mok := levelRank[strings.ToUpper(min)]
	return !lok || !mok || lr >= mr
}

// ExportLogs aggregates the log under logDir and writes every entry to
// outputPath in the given format: "json", "text", or "csv".
func ExportLogs(logDir, outputPath string, format string) error {
	entries, err := AggregateLogs(logDir)
	if err != nil {
		return fmt.Errorf("failed to aggregate logs: %w", err)
	}
	return ExportLogEntries(entries, outputPath, format)
}

// ExportLogEntries writes already-aggregated entries to outputPath in
// the given format. Use this to export a filtered view.
func ExportLogEntries(entries []LogEntry, outputPath string, format string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	switch strings.ToLower(format) {
	case "json":
		return exportJSON(file, entries)
	case "text":
		return exportText(file, entries)
	case "csv":
		return exportCSV(file, entries)
	default:
		return fmt.Errorf("unsupported export format %q (want json, text, or csv)", format)
	}
}

func exportJSON(w io.Writer, entries []LogEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// exportText writes one line per entry, shaped like
//
//	[2026-08-01 10:00:00.000] INFO - server started (component=bridge) {"adb_path":"/sdk/adb"}
func exportText(w io.Writer, entries []LogEntry) error {
	for i := range entries {
		if _, err := fmt.Fprintln(w, textLine(&entries[i])); err != nil {
			return fmt.Errorf("failed to write text entry: %w", err)
		}
	}
	return nil
}

func textLine(e *LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s - %s",
		e.Timestamp.Format("2006-01-02 15:04:05.000"), e.Level, e.Message)

	var ctx []string
	if e.Component != "" {
		ctx = append(ctx, "component="+e.Component)
	}
	if e.Serial != "" {
		ctx = append(ctx, "serial="+e.Serial)
	}
	if e.Attempt > 0 {
		ctx = append(ctx, "attempt="+strconv.Itoa(e.Attempt))
	}
	if len(ctx) > 0 {
		b.WriteString(" (" + strings.Join(ctx, ", ") + ")")
	}

	if len(e.Attrs) > 0 {
		if raw, err := json.Marshal(e.Attrs); err == nil {
			b.WriteString(" " + string(raw))
		}
	}
	return b.String()
}

func exportCSV(w io.Writer, entries []LogEntry) error {
	cw := csv.NewWriter(w)

	header := []string{"timestamp", "level", "message", "component", "serial", "attempt", "attrs"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range entries {
		if err := cw.Write(csvRecord(&entries[i])); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRecord(e *LogEntry) []string {
	attempt := ""
	if e.Attempt > 0 {
		attempt = strconv.Itoa(e.Attempt)
	}
	attrs := ""
	if len(e.Attrs) > 0 {
		if raw, err := json.Marshal(e.Attrs); err == nil {
			attrs = string(raw)
		}
	}

	return []string{
		e.Timestamp.Format(time.RFC3339Nano),
		e.Level,
		e.Message,
		e.Component,
		e.Serial,
		attempt,
		attrs,
	}
}
