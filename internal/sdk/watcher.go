package sdk

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/logging"
)

// Watcher invalidates a handle's cached target data when the install
// changes on disk, e.g. when sdkmanager installs or removes packages.
type Watcher struct {
	fsw    *fsnotify.Watcher
	handle *Handle
	log    *logging.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// WatchHandle starts watching the handle's SDK root. Closing the watcher
// does not affect the handle.
func WatchHandle(h *Handle, log *logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.NopLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the root plus the package sections that feed target data.
	// Sections missing from this install are skipped.
	paths := []string{
		h.Path(),
		filepath.Join(h.Path(), platformsDirName),
		filepath.Join(h.Path(), addonsDirName),
		filepath.Join(h.Path(), buildToolsDirName),
	}
	watched := 0
	for _, p := range paths {
		if err := fsw.Add(p); err == nil {
			watched++
		}
	}
	if watched == 0 {
		_ = fsw.Close()
		return nil, errors.NewSdkError("nothing to watch under sdk root", nil).WithPath(h.Path())
	}

	w := &Watcher{
		fsw:    fsw,
		handle: h,
		log:    log.WithComponent("sdkwatch"),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Any mutation under the root may change what a scan would see,
			// so drop the whole cache rather than guessing the target.
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.log.Debug("sdk change detected", "path", ev.Name, "op", ev.Op.String())
				w.handle.invalidate("", "watch")
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("sdk watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher. Safe to call multiple times.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
