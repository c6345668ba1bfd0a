package sdk

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/droidcore/sdkbridge/internal/event"
	"github.com/droidcore/sdkbridge/internal/logging"
)

// TargetData is the derived, cacheable view of one target: paths and
// properties that take filesystem work to assemble.
type TargetData struct {
	Target     Target
	AndroidJar string            // path to android.jar, empty when missing
	Skins      []string          // bundled emulator skin names, sorted
	BuildProps map[string]string // parsed build.prop, empty when missing
}

// BuildProp returns a single build.prop value.
func (d *TargetData) BuildProp(key string) (string, bool) {
	v, ok := d.BuildProps[key]
	return v, ok
}

// TargetData returns the cached derived data for t, loading it on first
// use. The cache is unbounded, lives for the handle's lifetime, and is
// rebuilt transparently after invalidation.
func (h *Handle) TargetData(t Target) *TargetData {
	hash := t.HashString()

	h.dataMu.Lock()
	defer h.dataMu.Unlock()
	if d, ok := h.data[hash]; ok {
		return d
	}
	d := loadTargetData(t, h.reg.log)
	h.data[hash] = d
	return d
}

// InvalidateTargetData drops the cached data for one target. The next
// TargetData call rebuilds it from disk.
func (h *Handle) InvalidateTargetData(t Target) {
	h.invalidate(t.HashString(), "explicit")
}

// InvalidateData drops all cached target data.
func (h *Handle) InvalidateData() {
	h.invalidate("", "explicit")
}

// invalidate clears one cache entry, or all of them when hash is empty.
func (h *Handle) invalidate(hash, reason string) {
	h.dataMu.Lock()
	if hash == "" {
		h.data = make(map[string]*TargetData)
	} else {
		delete(h.data, hash)
	}
	h.dataMu.Unlock()

	h.reg.log.Debug("target data invalidated", "sdk", h.path, "target", hash, "reason", reason)
	h.reg.bus.Publish(event.NewSdkInvalidatedEvent(h.path, hash, reason))
}

// loadTargetData assembles TargetData from the target's install directory.
// Loading is best-effort: a target without build.prop or skins yields
// empty fields rather than an error.
func loadTargetData(t Target, log *logging.Logger) *TargetData {
	d := &TargetData{Target: t, BuildProps: map[string]string{}}

	jar := filepath.Join(t.Location(), "android.jar")
	if _, err := os.Stat(jar); err == nil {
		d.AndroidJar = jar
	}

	if entries, err := os.ReadDir(filepath.Join(t.Location(), "skins")); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				d.Skins = append(d.Skins, e.Name())
			}
		}
		sort.Strings(d.Skins)
	}

	if props, err := LoadProperties(filepath.Join(t.Location(), "build.prop")); err == nil {
		d.BuildProps = props
	} else {
		log.Debug("no build.prop for target", "target", t.HashString(), "error", err)
	}

	return d
}
