// Package logging provides structured JSON logging for sdkbridge.
//
// Everything is built on log/slog with a JSON handler. Entries go to a
// single sdkbridge.log file, rotated by size when configured, and the
// same package reads that file back for the logs command: aggregation,
// filtering, and export live next to the writer so both sides agree on
// field names.
//
// # Writing logs
//
//	logger, err := logging.NewLogger(logDir, logging.LevelInfo)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("server started", "adb_path", "/sdk/platform-tools/adb")
//
// Child loggers carry persistent attributes, so a subsystem tags its
// entries once instead of on every call:
//
//	bridgeLog := logger.WithComponent("bridge")
//	deviceLog := bridgeLog.WithSerial("emulator-5554").WithAttempt(2)
//	deviceLog.Warn("device offline")
//
// produces
//
//	{"time":"...","level":"WARN","msg":"device offline","component":"bridge","serial":"emulator-5554","attempt":2}
//
// Loggers are safe for concurrent use. Children share the root logger's
// file handle; close the root when done.
//
// # Rotation
//
// The bridge daemon can run for days, so the file logger optionally
// rotates by size:
//
//	logger, err := logging.NewLoggerWithRotation(logDir, logging.LevelInfo, logging.RotationConfig{
//	    MaxSizeMB:  10,
//	    MaxBackups: 3,
//	    Compress:   true,
//	})
//
// Backups are numbered sdkbridge.log.1 (newest) through .N, with a .gz
// suffix when compression is on.
//
// # Reading logs back
//
// [AggregateLogs] parses the log file into [LogEntry] values sorted by
// timestamp, [FilterLogs] narrows them, and [ExportLogEntries] writes
// the result as json, text, or csv:
//
//	entries, err := logging.AggregateLogs(logDir)
//	if err != nil {
//	    return err
//	}
//	recent := logging.FilterLogs(entries, logging.LogFilter{
//	    Level:     logging.LevelWarn,
//	    Component: "bridge",
//	    StartTime: time.Now().Add(-time.Hour),
//	})
//	err = logging.ExportLogEntries(recent, "bridge-warnings.csv", "csv")
//
// # Levels
//
// Four levels, ordered DEBUG < INFO < WARN < ERROR. [ParseLevel]
// normalizes user input and falls back to INFO; [ValidLevels] lists the
// accepted strings for CLI help and config validation.
//
// # Configuration
//
// The config file's logging block maps onto this package:
//
//	logging:
//	  enabled: true
//	  level: info
//	  dir: ""
//	  max_size_mb: 10
//	  max_backups: 3
//
// An empty dir selects the state directory from [DefaultLogDir]. Tests
// use [NopLogger] to silence a component without touching the
// filesystem.
package logging
