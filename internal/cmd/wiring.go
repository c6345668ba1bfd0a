package cmd

import (
	"github.com/spf13/viper"

	"github.com/droidcore/sdkbridge/internal/adb"
	"github.com/droidcore/sdkbridge/internal/bridge"
	"github.com/droidcore/sdkbridge/internal/config"
	"github.com/droidcore/sdkbridge/internal/event"
	"github.com/droidcore/sdkbridge/internal/logging"
	"github.com/droidcore/sdkbridge/internal/sdk"
	"github.com/droidcore/sdkbridge/internal/tui"
)

// bus carries lifecycle events between the pieces a command wires
// together. One bus per process.
var bus = event.NewBus()

// loadConfig materializes the viper state into a validated Config.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// newLogger builds the process logger from the logging configuration.
// Logging is diagnostics, not the product: when the log file cannot be
// opened the command still runs, silently.
func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	level := cfg.Logging.Level
	if viper.GetBool("verbose") {
		level = logging.LevelDebug
	}

	dir, err := logDir(cfg)
	if err != nil {
		return logging.NopLogger()
	}

	log, err := logging.NewLoggerWithRotation(dir, level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return logging.NopLogger()
	}
	return log
}

// logDir resolves the directory debug logs are written to and read from.
func logDir(cfg *config.Config) (string, error) {
	if cfg.Logging.Dir != "" {
		return cfg.Logging.Dir, nil
	}
	return logging.DefaultLogDir()
}

// resolveSdk parses the configured SDK installation. The caller owns the
// returned handle and releases it when done.
func resolveSdk(cfg *config.Config, log *logging.Logger) (*sdk.Handle, error) {
	return sdk.NewRegistry(log, bus).Resolve(cfg.Sdk.ResolvePath())
}

// adbClient builds a client for the adb binary of the configured SDK.
// Bridge commands need only the binary, not a parsed install.
func adbClient(cfg *config.Config, log *logging.Logger) (*adb.Client, error) {
	path, err := adb.Locate(cfg.Sdk.ResolvePath())
	if err != nil {
		return nil, err
	}
	return adb.NewClient(path, cfg.Adb, log), nil
}

// newBridge wires a manager and coordinator over the given client.
func newBridge(cfg *config.Config, client *adb.Client, log *logging.Logger, nonInteractive bool) (*bridge.Manager, *bridge.Coordinator) {
	manager := bridge.NewManager(client, cfg.Bridge,
		bridge.WithLogger(log),
		bridge.WithBus(bus))
	return manager, bridge.NewCoordinator(manager, newPrompter(cfg, log, nonInteractive))
}

// newPrompter picks how wait-ceiling decisions are made: a terminal
// prompt when one can be shown, the configured default choice otherwise.
func newPrompter(cfg *config.Config, log *logging.Logger, nonInteractive bool) bridge.Prompter {
	if nonInteractive || cfg.UI.NonInteractive || !tui.Interactive() {
		choice, err := bridge.ParseChoice(cfg.Bridge.DefaultChoice)
		if err != nil {
			choice = bridge.ChoiceCancel
		}
		return &bridge.PolicyPrompter{Choice: choice, MaxRestarts: cfg.Bridge.MaxRestarts}
	}
	return tui.NewPrompter(log)
}
