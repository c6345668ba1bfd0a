package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root of the sdkbridge configuration tree. Sections map
// one to one onto the top-level keys of the yaml file.
type Config struct {
	Sdk     SdkConfig     `mapstructure:"sdk"`
	Adb     AdbConfig     `mapstructure:"adb"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
	Logging LoggingConfig `mapstructure:"logging"`
	UI      UIConfig      `mapstructure:"ui"`
}

// SdkConfig controls where the Android SDK lives and how it is tracked
type SdkConfig struct {
	// Path is the Android SDK root directory.
	// If empty, $ANDROID_SDK_ROOT and $ANDROID_HOME are consulted in that order.
	// Supports ~ for home directory expansion.
	Path string `mapstructure:"path"`
	// Watch enables filesystem watching of the SDK root so cached target data
	// is invalidated when packages are installed or removed (default: false)
	Watch bool `mapstructure:"watch"`
}

// AdbConfig controls how the adb binary is invoked
type AdbConfig struct {
	// LogLevel is the log level requested from the adb daemon
	// Options: "verbose", "debug", "info", "warn", "error", "assert" (default: "info")
	LogLevel string `mapstructure:"log_level"`
	// CommandTimeoutMs is the timeout for individual adb commands (in milliseconds)
	CommandTimeoutMs int `mapstructure:"command_timeout_ms"`
}

// BridgeConfig controls bridge startup and connection behavior
type BridgeConfig struct {
	// WaitCeilingMs is how long a single connection wait runs before the user
	// is asked whether to keep waiting (in milliseconds, default: 10000)
	WaitCeilingMs int `mapstructure:"wait_ceiling_ms"`
	// WakeIntervalMs is how often the connection wait wakes to check for
	// progress and cancellation (in milliseconds, default: 500)
	WakeIntervalMs int `mapstructure:"wake_interval_ms"`
	// ConnectPollMs is how often the worker polls the bridge for an
	// established connection (in milliseconds, default: 1000)
	ConnectPollMs int `mapstructure:"connect_poll_ms"`
	// CancelGraceAttempts is how many times a canceled worker is checked for
	// exit before being abandoned (default: 6)
	CancelGraceAttempts int `mapstructure:"cancel_grace_attempts"`
	// CancelGraceIntervalMs is the pause between cancellation checks (in milliseconds, default: 200)
	CancelGraceIntervalMs int `mapstructure:"cancel_grace_interval_ms"`
	// DefaultChoice is the answer assumed when the wait ceiling is reached and
	// no prompt can be shown. Options: "wait", "restart", "cancel" (default: "cancel")
	DefaultChoice string `mapstructure:"default_choice"`
	// MaxRestarts caps automatic bridge restarts per connection attempt in
	// non-interactive mode (default: 3)
	MaxRestarts int `mapstructure:"max_restarts"`
}

// LoggingConfig controls the structured log sdkbridge writes for itself
type LoggingConfig struct {
	// Enabled turns the log file on and off entirely (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level drops entries below this threshold, one of "debug", "info",
	// "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory where log files are written.
	// If empty, defaults to $XDG_STATE_HOME/sdkbridge (or ~/.local/state/sdkbridge).
	Dir string `mapstructure:"dir"`
	// MaxSizeMB rotates the log once it would grow past this size (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is how many rotated files are kept before the oldest is
	// dropped (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress"`
}

// UIConfig controls terminal output behavior
type UIConfig struct {
	// Color enables colored output (default: true)
	Color bool `mapstructure:"color"`
	// NonInteractive disables prompts; when a decision is needed the bridge
	// falls back to bridge.default_choice (default: false)
	NonInteractive bool `mapstructure:"non_interactive"`
}

// expandHome rewrites a leading ~ to the user's home directory. The path
// comes back unchanged when the home directory cannot be determined.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// ResolvePath returns the resolved SDK root directory.
// If Path is empty, $ANDROID_SDK_ROOT and then $ANDROID_HOME are consulted.
// If Path starts with ~, it expands to the user's home directory.
// Returns an empty string when no location is configured anywhere.
func (s *SdkConfig) ResolvePath() string {
	path := s.Path
	if path == "" {
		if env := os.Getenv("ANDROID_SDK_ROOT"); env != "" {
			path = env
		} else if env := os.Getenv("ANDROID_HOME"); env != "" {
			path = env
		}
	}
	if path == "" {
		return ""
	}
	return expandHome(path)
}

// Default returns the configuration used when neither the config file
// nor the environment overrides anything.
func Default() *Config {
	return &Config{
		Sdk: SdkConfig{
			Path:  "", // Empty means consult ANDROID_SDK_ROOT / ANDROID_HOME
			Watch: false,
		},
		Adb: AdbConfig{
			LogLevel:         "info",
			CommandTimeoutMs: 5000,
		},
		Bridge: BridgeConfig{
			WaitCeilingMs:         10000, // Ask the user every 10 seconds
			WakeIntervalMs:        500,
			ConnectPollMs:         1000,
			CancelGraceAttempts:   6,
			CancelGraceIntervalMs: 200,
			DefaultChoice:         "cancel",
			MaxRestarts:           3,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "", // Empty means use the default state directory
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
		UI: UIConfig{
			Color:          true,
			NonInteractive: false,
		},
	}
}

// CommandTimeout returns the adb command timeout as a time.Duration
func (c *AdbConfig) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMs) * time.Millisecond
}

// WaitCeiling returns the wait ceiling as a time.Duration
func (c *BridgeConfig) WaitCeiling() time.Duration {
	return time.Duration(c.WaitCeilingMs) * time.Millisecond
}

// WakeInterval returns the wake interval as a time.Duration
func (c *BridgeConfig) WakeInterval() time.Duration {
	return time.Duration(c.WakeIntervalMs) * time.Millisecond
}

// ConnectPoll returns the connection poll interval as a time.Duration
func (c *BridgeConfig) ConnectPoll() time.Duration {
	return time.Duration(c.ConnectPollMs) * time.Millisecond
}

// CancelGraceInterval returns the pause between cancellation checks as a time.Duration
func (c *BridgeConfig) CancelGraceInterval() time.Duration {
	return time.Duration(c.CancelGraceIntervalMs) * time.Millisecond
}

// SetDefaults seeds viper with Default's values so unset keys resolve
// instead of zeroing out.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("sdk.path", defaults.Sdk.Path)
	viper.SetDefault("sdk.watch", defaults.Sdk.Watch)

	viper.SetDefault("adb.log_level", defaults.Adb.LogLevel)
	viper.SetDefault("adb.command_timeout_ms", defaults.Adb.CommandTimeoutMs)

	viper.SetDefault("bridge.wait_ceiling_ms", defaults.Bridge.WaitCeilingMs)
	viper.SetDefault("bridge.wake_interval_ms", defaults.Bridge.WakeIntervalMs)
	viper.SetDefault("bridge.connect_poll_ms", defaults.Bridge.ConnectPollMs)
	viper.SetDefault("bridge.cancel_grace_attempts", defaults.Bridge.CancelGraceAttempts)
	viper.SetDefault("bridge.cancel_grace_interval_ms", defaults.Bridge.CancelGraceIntervalMs)
	viper.SetDefault("bridge.default_choice", defaults.Bridge.DefaultChoice)
	viper.SetDefault("bridge.max_restarts", defaults.Bridge.MaxRestarts)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	viper.SetDefault("ui.color", defaults.UI.Color)
	viper.SetDefault("ui.non_interactive", defaults.UI.NonInteractive)
}

// Load unmarshals viper's merged state into a Config and validates it.
// The error is a ValidationErrors when any value is out of bounds.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// Get returns the loaded configuration, or the defaults when loading
// fails. Call sites that need to report the failure use Load directly.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the directory holding the user's config file,
// honoring $XDG_CONFIG_HOME.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sdkbridge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sdkbridge"
	}
	return filepath.Join(home, ".config", "sdkbridge")
}

// ConfigFile returns the full path of the user's config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidChoices lists the accepted bridge.default_choice values.
func ValidChoices() []string {
	return []string{"wait", "restart", "cancel"}
}

// IsValidChoice reports whether choice names a known prompt answer.
// Matching is case sensitive.
func IsValidChoice(choice string) bool {
	return slices.Contains(ValidChoices(), choice)
}
