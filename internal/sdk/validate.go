package sdk

import (
	"os"
	"path/filepath"

	"github.com/droidcore/sdkbridge/internal/errors"
)

// CanonicalPath resolves path to an absolute, symlink-free form. If symlink
// resolution fails (dangling links, permission problems) the cleaned
// absolute path is returned instead.
func CanonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// ValidateRoot checks that dir can serve as an SDK root: it must be a
// readable directory containing a platforms/ subdirectory. The scan applies
// the stronger requirement that at least one platform parses. All failures
// wrap ErrSdkNotFound.
func ValidateRoot(dir string) error {
	if dir == "" {
		return errors.NewSdkError("no sdk location configured", errors.ErrSdkNotFound)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return errors.NewSdkError("sdk root not accessible", errors.ErrSdkNotFound).WithPath(dir)
	}
	if !info.IsDir() {
		return errors.NewSdkError("sdk root is not a directory", errors.ErrSdkNotFound).WithPath(dir)
	}

	platforms := filepath.Join(dir, platformsDirName)
	if info, err := os.Stat(platforms); err != nil || !info.IsDir() {
		return errors.NewSdkError("sdk root has no platforms directory", errors.ErrSdkNotFound).WithPath(dir)
	}
	return nil
}
