package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/droidcore/sdkbridge/internal/adb"
	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/logging"
)

// LockFileName is the name of the server lock file within the state directory.
const LockFileName = "adb-server.lock"

// ServerLock is an acquired claim on adb server mutations. Two sdkbridge
// processes restarting the server at the same time would tear down each
// other's connections, so starts, forced restarts, and teardown happen
// under this file lock.
type ServerLock struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	AdbPath   string    `json:"adb_path"`
	StartedAt time.Time `json:"started_at"`

	// Runtime state of the acquiring process, never written to disk.
	lockFile string
	logger   *logging.Logger
}

// AcquireServerLock attempts to acquire an exclusive claim on server
// mutations. Returns ErrServerLocked when another live process holds the
// claim. Locks left behind by dead processes are cleaned up silently.
// The logger is optional and may be nil.
func AcquireServerLock(stateDir, adbPath string, logger *logging.Logger) (*ServerLock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	lockPath := filepath.Join(stateDir, LockFileName)

	// Check for an existing lock
	if existing, err := ReadServerLock(lockPath); err == nil {
		if lockOwnerAlive(existing.PID) {
			if logger != nil {
				logger.Debug("server lock held elsewhere",
					"pid", existing.PID,
					"hostname", existing.Hostname)
			}
			return nil, fmt.Errorf("%w: PID %d on %s", errors.ErrServerLocked, existing.PID, existing.Hostname)
		}
		// The recorded owner is gone; its leftover claim yields to us.
		oldPID := existing.PID
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale server lock: %w", err)
		}
		if logger != nil {
			logger.Warn("stale server lock cleaned", "old_pid", oldPID)
		}
	}

	lock := &ServerLock{
		PID:       os.Getpid(),
		Hostname:  hostName(),
		AdbPath:   adbPath,
		StartedAt: time.Now(),
		lockFile:  lockPath,
		logger:    logger,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal server lock: %w", err)
	}

	// O_EXCL so a concurrent acquirer fails instead of clobbering
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := ReadServerLock(lockPath); readErr == nil {
				return nil, fmt.Errorf("%w: PID %d on %s", errors.ErrServerLocked, existing.PID, existing.Hostname)
			}
			return nil, errors.ErrServerLocked
		}
		return nil, fmt.Errorf("failed to create server lock file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write server lock file: %w", err)
	}

	if logger != nil {
		logger.Debug("server lock acquired", "pid", lock.PID, "adb", adbPath)
	}
	return lock, nil
}

// Release removes the lock file. Safe to call multiple times, and a no-op
// when another process has taken the lock over in the meantime.
func (l *ServerLock) Release() error {
	if l == nil || l.lockFile == "" {
		return nil
	}

	existing, err := ReadServerLock(l.lockFile)
	if err != nil {
		// Lock file already gone
		return nil
	}
	if existing.PID != l.PID {
		// Not our lock anymore
		return nil
	}

	if err := os.Remove(l.lockFile); err != nil {
		return err
	}
	if l.logger != nil {
		l.logger.Debug("server lock released", "pid", l.PID)
	}
	return nil
}

// ReadServerLock reads a lock file and returns the claim it records.
func ReadServerLock(lockPath string) (*ServerLock, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}

	var lock ServerLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse server lock file: %w", err)
	}
	lock.lockFile = lockPath
	return &lock, nil
}

// IsServerLocked reports whether a live process holds the server lock in
// stateDir, returning the claim when it does.
func IsServerLocked(stateDir string) (*ServerLock, bool) {
	lock, err := ReadServerLock(filepath.Join(stateDir, LockFileName))
	if err != nil {
		return nil, false
	}
	if !lockOwnerAlive(lock.PID) {
		return lock, false
	}
	return lock, true
}

// CleanStaleServerLock removes the lock file when its owner is no longer
// running. Returns true when a stale lock was cleaned.
func CleanStaleServerLock(stateDir string, logger *logging.Logger) (bool, error) {
	lockPath := filepath.Join(stateDir, LockFileName)

	lock, err := ReadServerLock(lockPath)
	if err != nil {
		return false, nil
	}
	if lockOwnerAlive(lock.PID) {
		return false, nil
	}

	if err := os.Remove(lockPath); err != nil {
		return false, fmt.Errorf("failed to remove stale server lock: %w", err)
	}
	if logger != nil {
		logger.Warn("stale server lock cleaned", "old_pid", lock.PID)
	}
	return true, nil
}

// lockOwnerAlive reports whether the lock-owning process still exists.
func lockOwnerAlive(pid int) bool {
	return adb.IsProcessAlive(pid)
}

func hostName() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
