package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/droidcore/sdkbridge/internal/adb"
	"github.com/droidcore/sdkbridge/internal/bridge"
	"github.com/droidcore/sdkbridge/internal/config"
	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/event"
	"github.com/droidcore/sdkbridge/internal/logging"
	"github.com/droidcore/sdkbridge/internal/util"
)

var bridgeNonInteractive bool

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Manage the adb server",
	Long: `Manage the adb server behind the configured SDK: start it and wait for
it to answer, stop it, restart it, or report its state.`,
}

var bridgeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the adb server and wait until it answers",
	RunE:  runBridgeStart,
}

var bridgeStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the adb server",
	RunE:  runBridgeStop,
}

var bridgeRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the adb server",
	RunE:  runBridgeRestart,
}

var bridgeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show adb server status",
	RunE:  runBridgeStatus,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.AddCommand(bridgeStartCmd)
	bridgeCmd.AddCommand(bridgeStopCmd)
	bridgeCmd.AddCommand(bridgeRestartCmd)
	bridgeCmd.AddCommand(bridgeStatusCmd)

	bridgeStartCmd.Flags().BoolVar(&bridgeNonInteractive, "non-interactive", false,
		"answer wait prompts with bridge.default_choice instead of asking")
}

func runBridgeStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Close() }()

	client, err := adbClient(cfg, log)
	if err != nil {
		return err
	}
	return connectAndReport(cmd, cfg, client, log)
}

func runBridgeRestart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Close() }()

	client, err := adbClient(cfg, log)
	if err != nil {
		return err
	}

	// Stop whatever is running, then connect from scratch.
	manager := bridge.NewManager(client, cfg.Bridge,
		bridge.WithLogger(log), bridge.WithBus(bus))
	if err := manager.Shutdown(cmd.Context()); err != nil {
		return err
	}
	return connectAndReport(cmd, cfg, client, log)
}

// connectAndReport runs one full connect protocol and prints the outcome.
// A concluded-but-failed attempt exits nonzero with the daemon's own
// output on display.
func connectAndReport(cmd *cobra.Command, cfg *config.Config, client *adb.Client, log *logging.Logger) error {
	// Narrate forced restarts as they happen; connecting can take a while.
	sub := bus.Subscribe("bridge.restarted", func(ev event.Event) {
		if restarted, ok := ev.(event.BridgeRestartedEvent); ok {
			fmt.Printf("Restarting adb server (%s)\n", restarted.Reason)
		}
	})
	defer bus.Unsubscribe(sub)

	ctx := cmd.Context()
	manager, coord := newBridge(cfg, client, log, bridgeNonInteractive)
	if err := coord.Connect(ctx); err != nil {
		return err
	}

	conn := manager.Handle()
	if conn == nil {
		fmt.Println("adb server did not answer")
		if out := coord.Errors(); out != "" {
			fmt.Println(util.Indent(out, "    "))
		}
		return errors.NewBridgeError("connection failed", errors.ErrBridgeFailed).
			WithAdbPath(client.Path()).
			WithAttempt(coord.Attempt())
	}

	banner, err := conn.Version(ctx)
	if err != nil {
		banner = "version unknown"
	}
	fmt.Printf("adb server running (%s)\n", banner)
	fmt.Printf("Binary: %s\n", client.Path())
	return nil
}

func runBridgeStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Close() }()

	client, err := adbClient(cfg, log)
	if err != nil {
		return err
	}

	running := client.Connected(cmd.Context())
	manager := bridge.NewManager(client, cfg.Bridge,
		bridge.WithLogger(log), bridge.WithBus(bus))
	if err := manager.Shutdown(cmd.Context()); err != nil {
		return err
	}

	if running {
		fmt.Println("adb server stopped")
	} else {
		fmt.Println("adb server was not running")
	}
	return nil
}

func runBridgeStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Close() }()

	client, err := adbClient(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	fmt.Printf("Binary: %s\n", client.Path())
	if banner, err := client.Version(ctx); err == nil {
		fmt.Printf("Client: %s\n", banner)
	}

	if client.Connected(ctx) {
		fmt.Println("Server: running")
	} else {
		fmt.Println("Server: not running")
	}
	if pids := adb.FindServerPIDs(); len(pids) > 0 {
		fmt.Printf("PIDs: %v\n", pids)
	}

	if stateDir, err := logging.DefaultLogDir(); err == nil {
		if lock, held := bridge.IsServerLocked(stateDir); held {
			fmt.Printf("Lock: held by PID %d on %s since %s\n",
				lock.PID, lock.Hostname, lock.StartedAt.Format(time.RFC3339))
		} else {
			fmt.Println("Lock: free")
		}
	}
	return nil
}
