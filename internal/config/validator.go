package config

import (
	"fmt"
	"slices"
	"strings"
)

// Bounds enforced by Validate. Fields named *_ms are milliseconds.
const (
	minCommandTimeoutMs = 100
	maxCommandTimeoutMs = 600000 // 10 minutes

	minWaitCeilingMs         = 1000
	maxWaitCeilingMs         = 600000 // 10 minutes
	minWakeIntervalMs        = 50
	minConnectPollMs         = 100
	maxConnectPollMs         = 60000 // 1 minute
	minCancelGraceAttempts   = 1
	maxCancelGraceAttempts   = 60
	minCancelGraceIntervalMs = 10
	maxCancelGraceIntervalMs = 10000 // 10 seconds
	maxAutoRestarts          = 20

	maxLogSizeMB = 1000 // 1GB
	maxPathLen   = 4096
)

// ValidationError describes one config value that Validate rejected.
type ValidationError struct {
	Field   string // dotted key as written in the yaml file, e.g. "bridge.wait_ceiling_ms"
	Value   any    // the rejected value
	Message string // what an acceptable value looks like
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors bundles every failure from one Validate pass into a
// single error value, so a broken config file surfaces as one complete
// report rather than one error per run.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for _, err := range e {
		sb.WriteString("  - " + err.Error() + "\n")
	}
	return sb.String()
}

// ValidLogLevels lists the level names sdkbridge's own logger accepts,
// least to most severe.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidAdbLogLevels lists the level names the adb daemon accepts for its
// server-side log.
func ValidAdbLogLevels() []string {
	return []string{"verbose", "debug", "info", "warn", "error", "assert"}
}

// problems accumulates failures while Validate walks the sections.
type problems []ValidationError

func (p *problems) add(field string, value any, format string, args ...any) {
	*p = append(*p, ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

// msRange flags v when it lies outside [lo, hi] milliseconds.
func (p *problems) msRange(field string, v, lo, hi int) {
	if v < lo {
		p.add(field, v, "must be at least %dms", lo)
	} else if v > hi {
		p.add(field, v, "exceeds maximum of %dms", hi)
	}
}

// checkPath flags values that cannot be filesystem paths. Empty means
// unset and always passes.
func (p *problems) checkPath(field, path string) {
	if path == "" {
		return
	}
	if strings.ContainsRune(path, '\x00') {
		p.add(field, path, "path contains invalid null character")
	}
	if len(path) > maxPathLen {
		p.add(field, path, "path exceeds maximum length of %d characters", maxPathLen)
	}
}

// checkLevel flags level names outside the allowed set. Matching is
// case sensitive; empty means unset and always passes.
func (p *problems) checkLevel(field, level string, allowed []string) {
	if level != "" && !slices.Contains(allowed, level) {
		p.add(field, level, "must be one of: %s", strings.Join(allowed, ", "))
	}
}

// Validate cross-checks every section of the config and returns all
// failures it finds. An empty result means the config is usable.
func (c *Config) Validate() []ValidationError {
	var p problems
	c.checkSdk(&p)
	c.checkAdb(&p)
	c.checkBridge(&p)
	c.checkLogging(&p)
	return p
}

func (c *Config) checkSdk(p *problems) {
	p.checkPath("sdk.path", c.Sdk.Path)
}

func (c *Config) checkAdb(p *problems) {
	p.checkLevel("adb.log_level", c.Adb.LogLevel, ValidAdbLogLevels())
	p.msRange("adb.command_timeout_ms", c.Adb.CommandTimeoutMs, minCommandTimeoutMs, maxCommandTimeoutMs)
}

func (c *Config) checkBridge(p *problems) {
	p.msRange("bridge.wait_ceiling_ms", c.Bridge.WaitCeilingMs, minWaitCeilingMs, maxWaitCeilingMs)

	if c.Bridge.WakeIntervalMs < minWakeIntervalMs {
		p.add("bridge.wake_interval_ms", c.Bridge.WakeIntervalMs, "must be at least %dms", minWakeIntervalMs)
	} else if c.Bridge.WakeIntervalMs > c.Bridge.WaitCeilingMs {
		// The wait loop has to wake at least once before the ceiling.
		p.add("bridge.wake_interval_ms", c.Bridge.WakeIntervalMs, "should not exceed wait_ceiling_ms (%v)", c.Bridge.WaitCeilingMs)
	}

	p.msRange("bridge.connect_poll_ms", c.Bridge.ConnectPollMs, minConnectPollMs, maxConnectPollMs)

	if c.Bridge.CancelGraceAttempts < minCancelGraceAttempts {
		p.add("bridge.cancel_grace_attempts", c.Bridge.CancelGraceAttempts, "must be at least %d", minCancelGraceAttempts)
	} else if c.Bridge.CancelGraceAttempts > maxCancelGraceAttempts {
		p.add("bridge.cancel_grace_attempts", c.Bridge.CancelGraceAttempts, "exceeds maximum of %d", maxCancelGraceAttempts)
	}
	p.msRange("bridge.cancel_grace_interval_ms", c.Bridge.CancelGraceIntervalMs, minCancelGraceIntervalMs, maxCancelGraceIntervalMs)

	if c.Bridge.DefaultChoice != "" && !IsValidChoice(c.Bridge.DefaultChoice) {
		p.add("bridge.default_choice", c.Bridge.DefaultChoice, "must be one of: %s", strings.Join(ValidChoices(), ", "))
	}

	if c.Bridge.MaxRestarts < 0 {
		p.add("bridge.max_restarts", c.Bridge.MaxRestarts, "must be non-negative (0 disables automatic restarts)")
	} else if c.Bridge.MaxRestarts > maxAutoRestarts {
		p.add("bridge.max_restarts", c.Bridge.MaxRestarts, "exceeds maximum of %d", maxAutoRestarts)
	}
}

func (c *Config) checkLogging(p *problems) {
	p.checkLevel("logging.level", c.Logging.Level, ValidLogLevels())

	if c.Logging.MaxSizeMB <= 0 {
		p.add("logging.max_size_mb", c.Logging.MaxSizeMB, "must be positive")
	} else if c.Logging.MaxSizeMB > maxLogSizeMB {
		p.add("logging.max_size_mb", c.Logging.MaxSizeMB, "exceeds maximum of %dMB", maxLogSizeMB)
	}
	if c.Logging.MaxBackups < 0 {
		p.add("logging.max_backups", c.Logging.MaxBackups, "must be non-negative")
	}
	p.checkPath("logging.dir", c.Logging.Dir)
}
