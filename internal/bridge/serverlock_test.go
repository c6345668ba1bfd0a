package bridge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/droidcore/sdkbridge/internal/errors"
)

// writeLockFile plants a lock claim for an arbitrary PID.
func writeLockFile(t *testing.T, dir string, pid int) string {
	t.Helper()

	lock := ServerLock{
		PID:       pid,
		Hostname:  "elsewhere",
		AdbPath:   "/sdk/platform-tools/adb",
		StartedAt: time.Now(),
	}
	data, err := json.Marshal(lock)
	if err != nil {
		t.Fatalf("failed to marshal lock: %v", err)
	}
	path := filepath.Join(dir, LockFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write lock file: %v", err)
	}
	return path
}

func TestAcquireServerLock(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireServerLock(dir, "/sdk/platform-tools/adb", nil)
	if err != nil {
		t.Fatalf("AcquireServerLock() error = %v", err)
	}

	if lock.PID != os.Getpid() {
		t.Errorf("lock.PID = %d, want %d", lock.PID, os.Getpid())
	}
	if lock.AdbPath != "/sdk/platform-tools/adb" {
		t.Errorf("lock.AdbPath = %q", lock.AdbPath)
	}

	read, err := ReadServerLock(filepath.Join(dir, LockFileName))
	if err != nil {
		t.Fatalf("ReadServerLock() error = %v", err)
	}
	if read.PID != lock.PID {
		t.Errorf("read.PID = %d, want %d", read.PID, lock.PID)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Error("lock file still exists after Release")
	}
}

func TestAcquireServerLock_CreatesStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	lock, err := AcquireServerLock(dir, "adb", nil)
	if err != nil {
		t.Fatalf("AcquireServerLock() error = %v", err)
	}
	defer func() { _ = lock.Release() }()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("state dir not created: %v", err)
	}
}

func TestAcquireServerLock_HeldByLiveProcess(t *testing.T) {
	dir := t.TempDir()

	// The current process is certainly alive.
	writeLockFile(t, dir, os.Getpid())

	_, err := AcquireServerLock(dir, "adb", nil)
	if !errors.Is(err, errors.ErrServerLocked) {
		t.Fatalf("error = %v, want ErrServerLocked", err)
	}
}

func TestAcquireServerLock_StaleOwnerCleaned(t *testing.T) {
	dir := t.TempDir()
	writeLockFile(t, dir, 99999999) // Very unlikely to be a real PID

	lock, err := AcquireServerLock(dir, "adb", nil)
	if err != nil {
		t.Fatalf("AcquireServerLock() error = %v, want stale lock replaced", err)
	}
	defer func() { _ = lock.Release() }()

	if lock.PID != os.Getpid() {
		t.Errorf("lock.PID = %d, want %d", lock.PID, os.Getpid())
	}
}

func TestServerLock_Release_Idempotent(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireServerLock(dir, "adb", nil)
	if err != nil {
		t.Fatalf("AcquireServerLock() error = %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("first Release() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() error = %v, want nil", err)
	}
}

func TestServerLock_Release_TakenOver(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireServerLock(dir, "adb", nil)
	if err != nil {
		t.Fatalf("AcquireServerLock() error = %v", err)
	}

	// Another process replaced the claim; Release must not remove it.
	writeLockFile(t, dir, 99999999)

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); err != nil {
		t.Error("foreign lock file removed by Release")
	}
}

func TestIsServerLocked(t *testing.T) {
	dir := t.TempDir()

	if _, locked := IsServerLocked(dir); locked {
		t.Error("IsServerLocked() = true with no lock file")
	}

	writeLockFile(t, dir, os.Getpid())
	claim, locked := IsServerLocked(dir)
	if !locked {
		t.Fatal("IsServerLocked() = false with live owner")
	}
	if claim.PID != os.Getpid() {
		t.Errorf("claim.PID = %d, want %d", claim.PID, os.Getpid())
	}

	writeLockFile(t, dir, 99999999)
	if _, locked := IsServerLocked(dir); locked {
		t.Error("IsServerLocked() = true with dead owner")
	}
}

func TestCleanStaleServerLock(t *testing.T) {
	dir := t.TempDir()

	cleaned, err := CleanStaleServerLock(dir, nil)
	if err != nil {
		t.Fatalf("CleanStaleServerLock() error = %v", err)
	}
	if cleaned {
		t.Error("cleaned = true with no lock file")
	}

	writeLockFile(t, dir, os.Getpid())
	cleaned, err = CleanStaleServerLock(dir, nil)
	if err != nil {
		t.Fatalf("CleanStaleServerLock() error = %v", err)
	}
	if cleaned {
		t.Error("cleaned = true with live owner")
	}

	writeLockFile(t, dir, 99999999)
	cleaned, err = CleanStaleServerLock(dir, nil)
	if err != nil {
		t.Fatalf("CleanStaleServerLock() error = %v", err)
	}
	if !cleaned {
		t.Error("cleaned = false with dead owner")
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Error("stale lock file still exists")
	}
}

func TestReadServerLock_Corrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	if _, err := ReadServerLock(path); err == nil {
		t.Error("expected error for corrupt lock file")
	}
}
