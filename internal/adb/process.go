package adb

import (
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// pgrep runs pgrep with args and parses one PID per output line. A nil
// result covers both "no match" and "pgrep unavailable".
func pgrep(args ...string) []int {
	out, err := exec.Command("pgrep", args...).Output()
	if err != nil {
		return nil
	}

	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if pid, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			pids = append(pids, pid)
		}
	}
	return pids
}

// FindServerPIDs returns the PIDs of running adb server processes,
// matched by exact process name.
func FindServerPIDs() []int {
	return pgrep("-x", "adb")
}

// GetDescendantPIDs returns every descendant of pid, walking pgrep -P
// recursively.
func GetDescendantPIDs(pid int) []int {
	if pid <= 0 {
		return nil
	}

	var all []int
	for _, child := range pgrep("-P", strconv.Itoa(pid)) {
		all = append(all, child)
		all = append(all, GetDescendantPIDs(child)...)
	}
	return all
}

// IsProcessAlive reports whether a process with the given PID exists,
// using the signal-0 existence check.
func IsProcessAlive(pid int) bool {
	return pid > 0 && syscall.Kill(pid, 0) == nil
}

// KillProcessTree sends SIGKILL to pid and all of its descendants,
// deepest first.
func KillProcessTree(pid int) {
	if pid <= 0 {
		return
	}

	descendants := GetDescendantPIDs(pid)
	for i := len(descendants) - 1; i >= 0; i-- {
		killIfAlive(descendants[i])
	}
	killIfAlive(pid)
}

func killIfAlive(pid int) {
	if IsProcessAlive(pid) {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
}

// WaitForProcessExit polls pid until it exits or timeout elapses,
// reporting whether it exited. A dead or invalid pid returns true
// immediately.
func WaitForProcessExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for IsProcessAlive(pid) {
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
	return true
}

// EnsureServerStopped force-kills any adb server that survived kill-server.
// It waits up to timeout for each server process to exit on its own first.
func EnsureServerStopped(timeout time.Duration) {
	for _, pid := range FindServerPIDs() {
		if WaitForProcessExit(pid, timeout) {
			continue
		}
		KillProcessTree(pid)
	}
}
