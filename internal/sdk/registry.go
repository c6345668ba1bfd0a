package sdk

import (
	"slices"
	"sync"

	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/event"
	"github.com/droidcore/sdkbridge/internal/logging"
)

// Registry tracks parsed SDK installations so repeated resolves share one
// parsed view per root.
//
// Entries are reference counted: Resolve and ResolveForce return handles
// holding one reference, Release drops it, and zero-reference entries are
// pruned during later unforced resolves. Lookup and insert happen under a
// single lock, so two concurrent resolves of the same new root produce one
// shared handle.
type Registry struct {
	mu      sync.Mutex
	handles []*Handle // most recently parsed first
	gen     uint64

	log *logging.Logger
	bus *event.Bus
}

// NewRegistry creates an empty registry. A nil logger or bus is replaced
// with inert defaults.
func NewRegistry(log *logging.Logger, bus *event.Bus) *Registry {
	if log == nil {
		log = logging.NopLogger()
	}
	if bus == nil {
		bus = event.NewBus()
	}
	return &Registry{
		log: log.WithComponent("sdk"),
		bus: bus,
	}
}

// Resolve returns a handle for the SDK rooted at path. When the root is
// already registered the existing handle gains a reference and is returned,
// pointer-identical to earlier resolves. Otherwise the root is validated
// and parsed; roots that fail validation return an error wrapping
// ErrSdkNotFound.
func (r *Registry) Resolve(path string) (*Handle, error) {
	return r.resolve(path, false)
}

// ResolveForce reparses the SDK at path even when a handle already exists,
// returning a fresh handle. Existing handles for the same root stay valid
// until released; the fresh handle shadows them in later lookups.
func (r *Registry) ResolveForce(path string) (*Handle, error) {
	return r.resolve(path, true)
}

func (r *Registry) resolve(path string, force bool) (*Handle, error) {
	canonical := CanonicalPath(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !force {
		r.pruneLocked()
		for _, h := range r.handles {
			if h.path == canonical {
				h.refs++
				return h, nil
			}
		}
	}

	if err := ValidateRoot(canonical); err != nil {
		r.log.Debug("sdk validation failed", "path", path, "error", err)
		return nil, err
	}

	inv := scanRoot(canonical, r.log)
	if countPlatforms(inv.targets) == 0 {
		r.log.Debug("sdk has no usable platforms", "path", canonical)
		return nil, errors.NewSdkError("no usable platforms installed", errors.ErrSdkNotFound).WithPath(canonical)
	}

	r.gen++
	h := &Handle{
		reg:        r,
		path:       canonical,
		generation: r.gen,
		inv:        inv,
		refs:       1,
		data:       make(map[string]*TargetData),
	}
	// Newest parse wins path lookups, so insert at the front.
	r.handles = slices.Insert(r.handles, 0, h)

	r.log.Info("sdk resolved",
		"path", canonical,
		"targets", len(inv.targets),
		"build_tools", len(inv.buildTools),
		"forced", force)
	r.bus.Publish(event.NewSdkResolvedEvent(path, canonical, len(inv.targets), force))

	return h, nil
}

// release drops one reference. Releasing more often than resolving is a
// caller bug; the count is clamped at zero with a warning.
func (r *Registry) release(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.refs <= 0 {
		r.log.Warn("sdk handle released more times than resolved", "path", h.path)
		h.refs = 0
		return
	}
	h.refs--
}

// pruneLocked drops zero-reference entries. Caller holds r.mu.
func (r *Registry) pruneLocked() {
	kept := r.handles[:0]
	for _, h := range r.handles {
		if h.refs > 0 {
			kept = append(kept, h)
		} else {
			r.log.Debug("pruning unreferenced sdk handle", "path", h.path, "generation", h.generation)
		}
	}
	clear(r.handles[len(kept):])
	r.handles = kept
}

// Len returns the number of registered entries, counting zero-reference
// entries not yet pruned.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func countPlatforms(targets []Target) int {
	n := 0
	for _, t := range targets {
		if t.IsPlatform() {
			n++
		}
	}
	return n
}
