package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RotationConfig bounds the size of the on-disk log.
type RotationConfig struct {
	MaxSizeMB  int  // rotate once the file would exceed this many megabytes; 0 disables
	MaxBackups int  // rotated files to keep; 0 discards the full file
	Compress   bool // gzip rotated files
}

// DefaultRotationConfig matches the config file defaults: a 10MB limit,
// three backups, no compression.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{MaxSizeMB: 10, MaxBackups: 3}
}

// RotatingWriter is an io.Writer that appends to a file and rotates it when
// it grows past a size limit. Backups are numbered path.1 (newest) through
// path.N (oldest). It is safe for concurrent use.
type RotatingWriter struct {
	mu sync.Mutex

	path       string
	limit      int64 // rotation threshold in bytes, 0 disables
	maxBackups int
	compress   bool

	file *os.File
	size int64
}

// NewRotatingWriter creates a RotatingWriter for the given file path,
// creating parent directories as needed.
func NewRotatingWriter(path string, config RotationConfig) (*RotatingWriter, error) {
	rw := &RotatingWriter{
		path:       path,
		limit:      int64(config.MaxSizeMB) * 1024 * 1024,
		maxBackups: config.MaxBackups,
		compress:   config.Compress,
	}

	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

// open opens the log file append-only and records its size.
// The caller must hold the mutex (or own the writer exclusively).
func (rw *RotatingWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(rw.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(rw.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	rw.file = file
	rw.size = info.Size()
	return nil
}

// closeFile syncs and closes the open file. The caller must hold the
// mutex and have checked that a file is open.
func (rw *RotatingWriter) closeFile() error {
	if err := rw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := rw.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	rw.file = nil
	return nil
}

// Write implements io.Writer. The write that would push the file past the
// limit triggers rotation first, so a single entry is never split across
// files.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return 0, os.ErrClosed
	}
	if rw.limit > 0 && rw.size+int64(len(p)) > rw.limit {
		if err := rw.rotate(); err != nil {
			// Keep writing to the current file rather than dropping entries.
			fmt.Fprintf(os.Stderr, "warning: log rotation failed, continuing on current file: %v\n", err)
		}
	}

	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

// rotate closes the current file, shifts backups up by one slot, moves the
// file to slot 1, and opens a fresh file. The caller must hold the mutex.
func (rw *RotatingWriter) rotate() error {
	if err := rw.closeFile(); err != nil {
		return err
	}

	rw.shiftBackups()

	if rw.maxBackups > 0 {
		backup := rw.backupPath(1)
		if err := os.Rename(rw.path, backup); err != nil {
			if openErr := rw.open(); openErr != nil {
				return fmt.Errorf("failed to move full log aside or reopen it: %w", openErr)
			}
			return fmt.Errorf("failed to move full log aside: %w", err)
		}
		if rw.compress {
			if err := compressFile(backup); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not compress rotated log %s: %v\n", backup, err)
			}
		}
	} else {
		// No backups kept: discard the full file outright.
		os.Remove(rw.path)
	}

	return rw.open()
}

// shiftBackups renumbers existing backups so slot 1 is free, dropping the
// oldest when the backup count is at its limit.
func (rw *RotatingWriter) shiftBackups() {
	if rw.maxBackups <= 0 {
		rw.removeBackup(1)
		return
	}

	rw.removeBackup(rw.maxBackups)
	for i := rw.maxBackups - 1; i >= 1; i-- {
		rw.moveBackup(i, i+1)
	}
}

// moveBackup renames backup slot i to slot j in whichever form the slot
// exists, compressed first.
func (rw *RotatingWriter) moveBackup(i, j int) {
	for _, ext := range []string{".gz", ""} {
		from := rw.backupPath(i) + ext
		if _, err := os.Stat(from); err == nil {
			os.Rename(from, rw.backupPath(j)+ext)
			return
		}
	}
}

// removeBackup deletes backup slot n in both compressed and plain forms.
func (rw *RotatingWriter) removeBackup(n int) {
	path := rw.backupPath(n)
	os.Remove(path)
	os.Remove(path + ".gz")
}

// backupPath returns the path for backup slot n.
func (rw *RotatingWriter) backupPath(n int) string {
	return fmt.Sprintf("%s.%d", rw.path, n)
}

// compressFile gzips path into path.gz and removes the original on success.
func compressFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		dst.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := gz.Close(); err != nil {
		dst.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path + ".gz")
		return err
	}

	return os.Remove(path)
}

// Sync flushes buffered data to disk. Syncing a closed writer is a no-op.
func (rw *RotatingWriter) Sync() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return nil
	}
	return rw.file.Sync()
}

// Close syncs and closes the underlying file. Subsequent writes fail.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return nil
	}
	return rw.closeFile()
}

// CurrentSize returns the size of the log file in bytes, counting
// writes since open.
func (rw *RotatingWriter) CurrentSize() int64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.size
}

// FilePath returns the path of the active log file.
func (rw *RotatingWriter) FilePath() string {
	return rw.path
}
