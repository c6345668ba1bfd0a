package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View sdkbridge debug logs",
	Long: `View and filter the sdkbridge debug log.

Shows entries from the process log under the state directory. Use flags
to filter, follow, or export the output.

Examples:
  # Show the last 50 entries
  sdkbridge logs

  # Everything the bridge logged at warn or above
  sdkbridge logs --component bridge --level warn -n 0

  # Follow new entries in real time
  sdkbridge logs -f

  # Entries for one device from the last hour
  sdkbridge logs --serial emulator-5554 --since 1h

  # Export matching entries for a bug report
  sdkbridge logs --level error --export failures.csv --format csv`,
	RunE: runLogs,
}

var (
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsComponent string
	logsSerial    string
	logsSince     string
	logsGrep      string
	logsExport    string
	logsFormat    string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Stream new entries as they are written")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Hide entries below this level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Filter by component (sdk, adb, bridge)")
	logsCmd.Flags().StringVar(&logsSerial, "serial", "", "Filter by device serial")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsExport, "export", "", "Write matching entries to a file instead of stdout")
	logsCmd.Flags().StringVar(&logsFormat, "format", "json", "Export format: json, text, or csv")
}

// Raw ANSI escapes; the logs command writes straight to the terminal.
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir, err := logDir(cfg)
	if err != nil {
		return err
	}

	filter, err := buildLogFilter()
	if err != nil {
		return err
	}
	grep, err := compileGrep()
	if err != nil {
		return err
	}

	if logsFollow {
		return followLogs(filepath.Join(dir, logging.LogFileName), filter, grep)
	}

	entries, err := logging.AggregateLogs(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("No log file at %s\n", filepath.Join(dir, logging.LogFileName))
			return nil
		}
		return err
	}

	entries = logging.FilterLogs(entries, filter)
	entries = grepEntries(entries, grep)
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	if logsExport != "" {
		if err := logging.ExportLogEntries(entries, logsExport, logsFormat); err != nil {
			return err
		}
		fmt.Printf("Exported %d entries to %s\n", len(entries), logsExport)
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No matching log entries found.")
		return nil
	}
	for i := range entries {
		fmt.Println(formatLogEntry(&entries[i]))
	}
	return nil
}

// buildLogFilter translates the flag values into a log filter.
func buildLogFilter() (logging.LogFilter, error) {
	filter := logging.LogFilter{
		Component: logsComponent,
		Serial:    logsSerial,
	}
	if logsLevel != "" {
		filter.Level = logging.ParseLevel(logsLevel)
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return filter, errors.Wrap(err, "invalid --since duration")
		}
		filter.StartTime = time.Now().Add(-d)
	}
	return filter, nil
}

func compileGrep() (*regexp.Regexp, error) {
	if logsGrep == "" {
		return nil, nil
	}
	re, err := regexp.Compile(logsGrep)
	if err != nil {
		return nil, errors.Wrap(err, "invalid --grep pattern")
	}
	return re, nil
}

// grepEntries keeps the entries whose message or attribute values match.
func grepEntries(entries []logging.LogEntry, re *regexp.Regexp) []logging.LogEntry {
	if re == nil {
		return entries
	}
	var matched []logging.LogEntry
	for _, e := range entries {
		if matchesGrep(&e, re) {
			matched = append(matched, e)
		}
	}
	return matched
}

func matchesGrep(e *logging.LogEntry, re *regexp.Regexp) bool {
	if re.MatchString(e.Message) {
		return true
	}
	for _, v := range e.Attrs {
		if re.MatchString(fmt.Sprintf("%v", v)) {
			return true
		}
	}
	return false
}

var levelColors = map[string]string{
	logging.LevelDebug: colorGray,
	logging.LevelInfo:  colorBlue,
	logging.LevelWarn:  colorYellow,
	logging.LevelError: colorRed,
}

func levelColor(level string) string {
	if c, ok := levelColors[strings.ToUpper(level)]; ok {
		return c
	}
	return colorReset
}

// formatLogEntry renders one entry as a single colored line: a gray
// timestamp, the bracketed level, the message, then any context fields.
func formatLogEntry(e *logging.LogEntry) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s[%s]%s", colorGray, e.Timestamp.Format("15:04:05.000"), colorReset)
	fmt.Fprintf(&sb, " %s[%s]%s ", levelColor(e.Level), strings.ToUpper(e.Level), colorReset)
	sb.WriteString(e.Message)

	if e.Component != "" {
		writeContextField(&sb, "component", e.Component)
	}
	if e.Serial != "" {
		writeContextField(&sb, "serial", e.Serial)
	}
	if e.Attempt > 0 {
		writeContextField(&sb, "attempt", fmt.Sprintf("%d", e.Attempt))
	}
	for key, value := range e.Attrs {
		writeContextField(&sb, key, fmt.Sprintf("%v", value))
	}

	return sb.String()
}

// writeContextField appends one key=value pair, colored as a unit so no
// escape code lands between the key and its value.
func writeContextField(sb *strings.Builder, key, value string) {
	fmt.Fprintf(sb, " %s%s=%s%s", colorCyan, key, value, colorReset)
}

// followLogs implements tail -f behavior for the log file.
func followLogs(path string, filter logging.LogFilter, grep *regexp.Regexp) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No log file at %s\n", path)
			return nil
		}
		return err
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return errors.Wrap(err, "seeking log file")
	}

	fmt.Printf("Following %s (Ctrl+C to stop)\n\n", path)

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return errors.Wrap(err, "reading log file")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		entry, perr := logging.ParseLogEntry(line)
		if perr != nil {
			// Unparseable lines are shown raw rather than dropped.
			fmt.Println(line)
			continue
		}
		if !logging.MatchesFilter(entry, filter) {
			continue
		}
		if grep != nil && !matchesGrep(&entry, grep) {
			continue
		}
		fmt.Println(formatLogEntry(&entry))
	}
}
