package sdk

import (
	"strings"
	"sync"
)

// Handle is a reference-counted view of one parsed SDK installation.
//
// The parsed content is immutable: refreshing a changed install means
// force-resolving a new handle, never mutating an existing one. Zero
// reference handles stay usable until the registry prunes them, but
// callers must not touch a handle after releasing their reference.
type Handle struct {
	reg        *Registry
	path       string // canonical root
	generation uint64
	inv        *inventory

	refs int // guarded by reg.mu

	dataMu sync.Mutex
	data   map[string]*TargetData // keyed by target hash
}

// Path returns the canonical SDK root directory.
func (h *Handle) Path() string { return h.path }

// Generation returns the registry parse counter at scan time. Handles for
// the same root differ in generation when one was force-reparsed.
func (h *Handle) Generation() uint64 { return h.generation }

// Release drops the caller's reference.
func (h *Handle) Release() { h.reg.release(h) }

// SameLocation reports whether path refers to this handle's SDK root,
// comparing canonical forms.
func (h *Handle) SameLocation(path string) bool {
	return CanonicalPath(path) == h.path
}

// Targets returns the installed targets: platforms ordered by version,
// then add-ons ordered by name.
func (h *Handle) Targets() []Target {
	out := make([]Target, len(h.inv.targets))
	copy(out, h.inv.targets)
	return out
}

// FindTargetByName returns the first target with the given display name.
// Names are not unique across an installation; when duplicates exist the
// enumeration order decides which wins.
func (h *Handle) FindTargetByName(name string) (Target, bool) {
	for _, t := range h.inv.targets {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// FindTargetByAPILevel returns the target matching an api string such as
// "34" or a preview code name. Platforms are preferred; when no platform
// matches, the first matching add-on in enumeration order wins.
func (h *Handle) FindTargetByAPILevel(api string) (Target, bool) {
	api = strings.TrimSpace(api)
	var fallback Target
	for _, t := range h.inv.targets {
		if t.Version().String() != api {
			continue
		}
		if t.IsPlatform() {
			return t, true
		}
		if fallback == nil {
			fallback = t
		}
	}
	if fallback != nil {
		return fallback, true
	}
	return nil, false
}

// FindTargetByHash returns the target with the given hash string.
func (h *Handle) FindTargetByHash(hash string) (Target, bool) {
	for _, t := range h.inv.targets {
		if t.HashString() == hash {
			return t, true
		}
	}
	return nil, false
}

// BuildTools returns the installed build-tools packages in ascending
// revision order.
func (h *Handle) BuildTools() []BuildTool {
	out := make([]BuildTool, len(h.inv.buildTools))
	copy(out, h.inv.buildTools)
	return out
}

// LatestBuildTool returns the newest installed build-tools package.
func (h *Handle) LatestBuildTool() (BuildTool, bool) {
	if len(h.inv.buildTools) == 0 {
		return BuildTool{}, false
	}
	return h.inv.buildTools[len(h.inv.buildTools)-1], true
}

// PlatformToolsRevision returns the revision of the installed
// platform-tools package.
func (h *Handle) PlatformToolsRevision() (Revision, bool) {
	if h.inv.platformToolsRev == nil {
		return Revision{}, false
	}
	return *h.inv.platformToolsRev, true
}

// ToolsRevision returns the revision of the legacy tools package.
func (h *Handle) ToolsRevision() (Revision, bool) {
	if h.inv.toolsRev == nil {
		return Revision{}, false
	}
	return *h.inv.toolsRev, true
}
