// Package adb wraps the Android Debug Bridge command line client.
//
// The package deliberately stays below the connection lifecycle: it locates
// the adb binary inside an SDK install, builds commands against a specific
// binary, parses client output, and watches the server process. Deciding
// when to start, restart, or abandon the server is the bridge package's
// job.
//
// All commands run against an explicit binary path rather than whatever
// adb happens to be on PATH, so two SDK installs never cross wires.
package adb

import (
	"context"
	"os/exec"
)

// Command creates an exec.Cmd for the adb binary at adbPath.
func Command(adbPath string, args ...string) *exec.Cmd {
	return exec.Command(adbPath, args...)
}

// CommandContext creates a context-aware exec.Cmd for the adb binary at
// adbPath. The process is killed when the context is canceled.
func CommandContext(ctx context.Context, adbPath string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, adbPath, args...)
}

// SerialArgs returns args scoped to a single device. Use this when a
// command must not race against device hot-plugging.
func SerialArgs(serial string, args ...string) []string {
	return append([]string{"-s", serial}, args...)
}
