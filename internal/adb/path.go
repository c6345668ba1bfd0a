package adb

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/sdk"
)

// Package directories searched for the adb binary, in preference order.
// platform-tools has shipped adb since SDK r8; the tools fallback covers
// ancient installs that never moved it.
var binaryDirs = []string{"platform-tools", "tools"}

// BinaryName returns the adb executable name for the current platform.
func BinaryName() string {
	if runtime.GOOS == "windows" {
		return "adb.exe"
	}
	return "adb"
}

// Locate finds the adb binary under an SDK root and returns its canonical
// path. When the binary exists but cannot be canonicalized the raw path is
// returned instead. Returns ErrAdbNotFound when no candidate exists.
func Locate(root string) (string, error) {
	if root == "" {
		return "", errors.NewBridgeError("no sdk root to search for adb", errors.ErrAdbNotFound)
	}

	for _, dir := range binaryDirs {
		candidate := filepath.Join(root, dir, BinaryName())
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		return sdk.CanonicalPath(candidate), nil
	}
	return "", errors.NewBridgeError("adb binary not found in sdk", errors.ErrAdbNotFound).WithAdbPath(
		filepath.Join(root, binaryDirs[0], BinaryName()))
}
