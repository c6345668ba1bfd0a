package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/droidcore/sdkbridge/internal/adb"
	"github.com/droidcore/sdkbridge/internal/bridge"
	"github.com/droidcore/sdkbridge/internal/logging"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the SDK installation and adb server health",
	Long: `Check that an SDK is configured and usable, that its adb binary runs,
and that the adb server is reachable. Exits nonzero when a check a
working setup depends on fails.`,
	RunE:         runDoctor,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Close() }()

	ctx := cmd.Context()
	failures := 0

	// SDK installation
	root := cfg.Sdk.ResolvePath()
	if root == "" {
		reportFail("no SDK configured: set sdk.path, $ANDROID_SDK_ROOT, or $ANDROID_HOME")
		failures++
	} else if handle, err := resolveSdk(cfg, log); err != nil {
		reportFail(fmt.Sprintf("SDK at %s is unusable: %v", root, err))
		failures++
	} else {
		reportOK(fmt.Sprintf("SDK at %s (%d targets)", handle.Path(), len(handle.Targets())))
		if rev, ok := handle.PlatformToolsRevision(); ok {
			reportOK("platform-tools " + rev.String())
		} else {
			reportWarn("platform-tools revision unknown")
		}
		if bt, ok := handle.LatestBuildTool(); ok {
			reportOK("build-tools " + bt.Revision.String())
		} else {
			reportWarn("no build-tools installed")
		}
		handle.Release()
	}

	// adb binary
	adbPath, err := adb.Locate(root)
	if err != nil {
		reportFail("adb binary not found: install platform-tools")
		failures++
	} else {
		client := adb.NewClient(adbPath, cfg.Adb, log)
		if banner, err := client.Version(ctx); err != nil {
			reportFail(fmt.Sprintf("adb at %s does not run: %v", adbPath, err))
			failures++
		} else {
			reportOK(banner)
		}

		if client.Connected(ctx) {
			reportOK("adb server answering")
		} else {
			reportWarn("adb server not running: start it with 'sdkbridge bridge start'")
		}
	}

	// Server lock left behind by a dead process
	if stateDir, err := logging.DefaultLogDir(); err == nil {
		if lock, held := bridge.IsServerLocked(stateDir); held {
			reportWarn(fmt.Sprintf("server lock held by PID %d on %s", lock.PID, lock.Hostname))
		} else if cleaned, _ := bridge.CleanStaleServerLock(stateDir, log); cleaned {
			reportWarn("removed a stale server lock")
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d problem(s) found", failures)
	}
	fmt.Println("\nNo problems found")
	return nil
}

func reportOK(msg string)   { fmt.Printf("  ok    %s\n", msg) }
func reportWarn(msg string) { fmt.Printf("  warn  %s\n", msg) }
func reportFail(msg string) { fmt.Printf("  fail  %s\n", msg) }
