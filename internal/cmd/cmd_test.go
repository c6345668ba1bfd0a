//go:build integration

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/droidcore/sdkbridge/internal/adb"
	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/logging"
	"github.com/droidcore/sdkbridge/internal/testutil"
)

// versionFakeAdb answers "adb version" with a plausible banner and
// swallows everything else.
const versionFakeAdb = `#!/bin/sh
if [ "$1" = "version" ]; then
	echo "Android Debug Bridge version 1.0.41"
fi
exit 0
`

// deviceListFakeAdb reports one offline and one unauthorized device and
// swallows everything else.
const deviceListFakeAdb = `#!/bin/sh
if [ "$1" = "devices" ]; then
	echo "List of devices attached"
	echo "emulator-5554	offline transport_id:2"
	echo "R3CN30ABCDE	unauthorized transport_id:3"
fi
exit 0
`

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// captureOutput captures stdout during function execution
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// setupTestEnvironment points every directory the commands touch at
// temporary locations and moves the adb server port off 5037, so a
// developer's real configuration and server stay out of the tests.
func setupTestEnvironment(t *testing.T) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("ANDROID_ADB_SERVER_PORT", reservePort(t))
	t.Setenv("ANDROID_SDK_ROOT", "")
	t.Setenv("ANDROID_HOME", "")
}

// skipIfAdbRunning keeps tests that tear servers down away from a real
// adb server.
func skipIfAdbRunning(t *testing.T) {
	t.Helper()

	if len(adb.FindServerPIDs()) > 0 {
		t.Skip("a real adb server is running, skipping test")
	}
}

// reservePort binds an ephemeral port, releases it, and returns its
// number. Nothing answers on it afterwards.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	_, port, _ := net.SplitHostPort(l.Addr().String())
	l.Close()
	return port
}

// serveFakeAdbServer answers the server protocol's version probe on the
// given port until the test ends.
func serveFakeAdbServer(t *testing.T, port string) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:"+port)
	if err != nil {
		t.Fatalf("failed to listen on %s: %v", port, err)
	}
	t.Cleanup(func() { l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				length := make([]byte, 4)
				if _, err := io.ReadFull(c, length); err != nil {
					return
				}
				var n int
				fmt.Sscanf(string(length), "%04x", &n)
				payload := make([]byte, n)
				if _, err := io.ReadFull(c, payload); err != nil {
					return
				}
				fmt.Fprint(c, "OKAY00040029")
			}(conn)
		}
	}()
}

func resetTargetFlags() {
	targetsAPI = ""
	targetsName = ""
	targetsHash = ""
}

func resetLogsFlags() {
	logsTail = 50
	logsFollow = false
	logsLevel = ""
	logsComponent = ""
	logsSerial = ""
	logsSince = ""
	logsGrep = ""
	logsExport = ""
	logsFormat = "json"
}

// writeTestLog places a log file where the logs command will look for it
// and returns the log directory.
func writeTestLog(t *testing.T, lines ...string) string {
	t.Helper()

	dir, err := logging.DefaultLogDir()
	if err != nil {
		t.Fatalf("failed to resolve log dir: %v", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create log dir: %v", err)
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, logging.LogFileName), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write log file: %v", err)
	}
	return dir
}

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}
	if rootCmd.Use != "sdkbridge" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "sdkbridge")
	}

	expectedCmds := []string{"targets", "devices", "bridge", "doctor", "shell", "logs", "version"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestBridgeSubcommands(t *testing.T) {
	expected := []string{"start", "stop", "restart", "status"}
	cmdMap := make(map[string]bool)
	for _, cmd := range bridgeCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range expected {
		if !cmdMap[name] {
			t.Errorf("expected bridge subcommand %q not found", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	setupTestEnvironment(t)

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "version")
	})
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(output, "sdkbridge") {
		t.Errorf("version output missing binary name: %q", output)
	}
	if !strings.Contains(output, "go:") {
		t.Errorf("version output missing go runtime line: %q", output)
	}
}

func TestTargetsCommand(t *testing.T) {
	setupTestEnvironment(t)
	t.Cleanup(resetTargetFlags)
	root := testutil.SetupTestSdk(t)

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "targets", "--sdk", root)
	})
	if err != nil {
		t.Fatalf("targets command failed: %v", err)
	}

	for _, want := range []string{
		"android-33",
		"android-34",
		"Android 14.0",
		"Platform-tools: 35.0.2",
		"Build-tools: 35.0.0",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("targets output missing %q:\n%s", want, output)
		}
	}
}

func TestTargetsCommand_FilterByAPI(t *testing.T) {
	setupTestEnvironment(t)
	t.Cleanup(resetTargetFlags)
	root := testutil.SetupTestSdk(t)

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "targets", "--sdk", root, "--api", "33")
	})
	if err != nil {
		t.Fatalf("targets --api failed: %v", err)
	}
	if !strings.Contains(output, "android-33") {
		t.Errorf("filtered output missing android-33:\n%s", output)
	}
	if strings.Contains(output, "android-34") {
		t.Errorf("filtered output should not list android-34:\n%s", output)
	}
}

func TestTargetsCommand_FilterMiss(t *testing.T) {
	setupTestEnvironment(t)
	t.Cleanup(resetTargetFlags)
	root := testutil.SetupTestSdk(t)

	_, err := executeCommand(rootCmd, "targets", "--sdk", root, "--hash", "android-99")
	if err == nil {
		t.Fatal("expected an error for a hash no target carries")
	}
	if !strings.Contains(err.Error(), "android-99") {
		t.Errorf("error should name the missing hash: %v", err)
	}
}

func TestTargetsCommand_NoSdk(t *testing.T) {
	setupTestEnvironment(t)
	t.Cleanup(resetTargetFlags)

	_, err := executeCommand(rootCmd, "targets", "--sdk", t.TempDir())
	if err == nil {
		t.Fatal("expected an error for a directory that is not an SDK")
	}
}

func TestDoctorCommand(t *testing.T) {
	setupTestEnvironment(t)
	root := testutil.SetupTestSdk(t)
	testutil.WriteFakeAdb(t, filepath.Join(root, "platform-tools"), versionFakeAdb)

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "doctor", "--sdk", root)
	})
	if err != nil {
		t.Fatalf("doctor failed on a healthy install: %v\n%s", err, output)
	}

	for _, want := range []string{
		"ok",
		"Android Debug Bridge version 1.0.41",
		"platform-tools 35.0.2",
		"No problems found",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("doctor output missing %q:\n%s", want, output)
		}
	}
	if !strings.Contains(output, "adb server not running") {
		t.Errorf("doctor should warn about the stopped server:\n%s", output)
	}
}

func TestDoctorCommand_NoSdk(t *testing.T) {
	setupTestEnvironment(t)

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "doctor", "--sdk", t.TempDir())
	})
	if err == nil {
		t.Fatal("doctor should exit nonzero without a usable SDK")
	}
	if !strings.Contains(output, "fail") {
		t.Errorf("doctor output missing failure lines:\n%s", output)
	}
}

func TestShellCommand_TooManySerials(t *testing.T) {
	setupTestEnvironment(t)

	_, err := executeCommand(rootCmd, "shell", "one", "two", "--", "echo", "hi")
	if err == nil {
		t.Fatal("expected a validation error for two serials")
	}
	if !strings.Contains(err.Error(), "serial") {
		t.Errorf("error should mention the serial: %v", err)
	}
}

func TestShellCommand_DeviceNotReady(t *testing.T) {
	setupTestEnvironment(t)
	skipIfAdbRunning(t)
	testutil.SkipIfNoShell(t)

	root := testutil.SetupTestSdk(t)
	testutil.WriteFakeAdb(t, filepath.Join(root, "platform-tools"), deviceListFakeAdb)
	serveFakeAdbServer(t, os.Getenv("ANDROID_ADB_SERVER_PORT"))

	_, err := executeCommand(rootCmd, "shell", "emulator-5554", "--sdk", root, "--", "true")
	if !errors.Is(err, errors.ErrDeviceOffline) {
		t.Errorf("shell on an offline device: err = %v, want ErrDeviceOffline", err)
	}

	_, err = executeCommand(rootCmd, "shell", "R3CN30ABCDE", "--sdk", root, "--", "true")
	if !errors.Is(err, errors.ErrDeviceUnauthorized) {
		t.Errorf("shell on an unauthorized device: err = %v, want ErrDeviceUnauthorized", err)
	}

	_, err = executeCommand(rootCmd, "shell", "GONE123", "--sdk", root, "--", "true")
	if !errors.Is(err, errors.ErrDeviceNotFound) {
		t.Errorf("shell on an absent serial: err = %v, want ErrDeviceNotFound", err)
	}
}

func TestBridgeStatusCommand_NotRunning(t *testing.T) {
	setupTestEnvironment(t)
	root := testutil.SetupTestSdk(t)
	testutil.WriteFakeAdb(t, filepath.Join(root, "platform-tools"), versionFakeAdb)

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "bridge", "status", "--sdk", root)
	})
	if err != nil {
		t.Fatalf("bridge status failed: %v", err)
	}

	if !strings.Contains(output, "Server: not running") {
		t.Errorf("status should report a stopped server:\n%s", output)
	}
	if !strings.Contains(output, "Lock: free") {
		t.Errorf("status should report a free lock:\n%s", output)
	}
	// Path() is canonicalized, so match the stable tail only.
	if !strings.Contains(output, filepath.Join("platform-tools", "adb")) {
		t.Errorf("status should print the binary path:\n%s", output)
	}
}

func TestBridgeStartCommand(t *testing.T) {
	setupTestEnvironment(t)
	skipIfAdbRunning(t)
	testutil.SkipIfNoShell(t)

	root := testutil.SetupTestSdk(t)
	testutil.WriteFakeAdb(t, filepath.Join(root, "platform-tools"), versionFakeAdb)
	serveFakeAdbServer(t, os.Getenv("ANDROID_ADB_SERVER_PORT"))

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "bridge", "start", "--sdk", root)
	})
	if err != nil {
		t.Fatalf("bridge start failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "adb server running") {
		t.Errorf("start should report the running server:\n%s", output)
	}
	if !strings.Contains(output, "Android Debug Bridge version 1.0.41") {
		t.Errorf("start should print the version banner:\n%s", output)
	}
}

func TestBridgeStartCommand_NoServer(t *testing.T) {
	setupTestEnvironment(t)
	skipIfAdbRunning(t)
	testutil.SkipIfNoShell(t)

	// Nothing listens on the reserved port and the fake adb starts no
	// daemon, so the attempt runs out the ceiling and the default choice
	// cancels it. The values are the smallest the validator accepts.
	t.Setenv("SDKBRIDGE_BRIDGE_WAIT_CEILING_MS", "1000")
	t.Setenv("SDKBRIDGE_BRIDGE_WAKE_INTERVAL_MS", "50")
	t.Setenv("SDKBRIDGE_BRIDGE_CONNECT_POLL_MS", "100")
	t.Setenv("SDKBRIDGE_BRIDGE_CANCEL_GRACE_INTERVAL_MS", "10")

	root := testutil.SetupTestSdk(t)

	_, err := executeCommand(rootCmd, "bridge", "start", "--sdk", root)
	if err == nil {
		t.Fatal("bridge start should fail when no server ever answers")
	}
}

func TestBridgeStopCommand_NotRunning(t *testing.T) {
	setupTestEnvironment(t)
	skipIfAdbRunning(t)
	testutil.SkipIfNoShell(t)

	root := testutil.SetupTestSdk(t)

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "bridge", "stop", "--sdk", root)
	})
	if err != nil {
		t.Fatalf("bridge stop failed: %v", err)
	}
	if !strings.Contains(output, "was not running") {
		t.Errorf("stop should report that nothing was running:\n%s", output)
	}
}

func TestLogsCommand(t *testing.T) {
	setupTestEnvironment(t)
	t.Cleanup(resetLogsFlags)
	writeTestLog(t,
		`{"time":"2026-08-01T10:00:00Z","level":"INFO","msg":"server started","component":"bridge","attempt":1}`,
		`{"time":"2026-08-01T10:00:01Z","level":"DEBUG","msg":"connect poll","component":"bridge"}`,
		`{"time":"2026-08-01T10:00:02Z","level":"ERROR","msg":"connection failed","component":"bridge","attempt":2}`,
	)

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "logs", "-n", "0")
	})
	if err != nil {
		t.Fatalf("logs command failed: %v", err)
	}
	for _, want := range []string{"server started", "connect poll", "connection failed", "component=bridge"} {
		if !strings.Contains(output, want) {
			t.Errorf("logs output missing %q:\n%s", want, output)
		}
	}
}

func TestLogsCommand_LevelFilter(t *testing.T) {
	setupTestEnvironment(t)
	t.Cleanup(resetLogsFlags)
	writeTestLog(t,
		`{"time":"2026-08-01T10:00:00Z","level":"INFO","msg":"server started","component":"bridge"}`,
		`{"time":"2026-08-01T10:00:01Z","level":"ERROR","msg":"connection failed","component":"bridge"}`,
	)

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "logs", "-n", "0", "--level", "error")
	})
	if err != nil {
		t.Fatalf("logs --level failed: %v", err)
	}
	if !strings.Contains(output, "connection failed") {
		t.Errorf("filtered output missing error entry:\n%s", output)
	}
	if strings.Contains(output, "server started") {
		t.Errorf("filtered output should not include info entry:\n%s", output)
	}
}

func TestLogsCommand_Export(t *testing.T) {
	setupTestEnvironment(t)
	t.Cleanup(resetLogsFlags)
	writeTestLog(t,
		`{"time":"2026-08-01T10:00:00Z","level":"WARN","msg":"device offline","component":"adb","serial":"emulator-5554"}`,
	)
	out := filepath.Join(t.TempDir(), "report.csv")

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "logs", "-n", "0", "--export", out, "--format", "csv")
	})
	if err != nil {
		t.Fatalf("logs --export failed: %v", err)
	}
	if !strings.Contains(output, "Exported 1 entries") {
		t.Errorf("export should report the entry count:\n%s", output)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if !strings.Contains(string(data), "device offline") {
		t.Errorf("export missing entry: %q", data)
	}
}

func TestLogsCommand_NoLogFile(t *testing.T) {
	setupTestEnvironment(t)
	t.Cleanup(resetLogsFlags)

	var err error
	output := captureOutput(func() {
		_, err = executeCommand(rootCmd, "logs")
	})
	if err != nil {
		t.Fatalf("logs without a log file should not fail: %v", err)
	}
	if !strings.Contains(output, "No log file at") {
		t.Errorf("expected a missing-file notice:\n%s", output)
	}
}

func TestSplitShellArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		serial  string
		command []string
	}{
		{"bare", []string{}, "", nil},
		{"serial only", []string{"emulator-5554"}, "emulator-5554", nil},
		{"command only", []string{"--", "getprop"}, "", []string{"getprop"}},
		{"serial and command", []string{"emulator-5554", "--", "echo", "hi"}, "emulator-5554", []string{"echo", "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "shell"}
			cmd.SetArgs(tt.args)
			var serial string
			var command []string
			var splitErr error
			cmd.RunE = func(c *cobra.Command, args []string) error {
				serial, command, splitErr = splitShellArgs(c, args)
				return nil
			}
			if err := cmd.Execute(); err != nil {
				t.Fatalf("execute failed: %v", err)
			}
			if splitErr != nil {
				t.Fatalf("splitShellArgs returned %v", splitErr)
			}
			if serial != tt.serial {
				t.Errorf("serial = %q, want %q", serial, tt.serial)
			}
			if len(command) != len(tt.command) {
				t.Fatalf("command = %v, want %v", command, tt.command)
			}
			for i := range command {
				if command[i] != tt.command[i] {
					t.Errorf("command[%d] = %q, want %q", i, command[i], tt.command[i])
				}
			}
		})
	}
}
