package sdk

import (
	"path/filepath"
	"testing"

	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/event"
	"github.com/droidcore/sdkbridge/internal/testutil"
)

func TestRegistry_Resolve(t *testing.T) {
	root := testutil.SetupTestSdk(t)
	reg := NewRegistry(nil, nil)

	h, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	defer h.Release()

	if h.Path() != CanonicalPath(root) {
		t.Errorf("Path() = %q, want %q", h.Path(), CanonicalPath(root))
	}
	if got := len(h.Targets()); got != 2 {
		t.Errorf("got %d targets, want 2", got)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistry_Resolve_ReusesLiveHandle(t *testing.T) {
	root := testutil.SetupTestSdk(t)
	reg := NewRegistry(nil, nil)

	h1, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	h2, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}

	if h1 != h2 {
		t.Error("second resolve returned a different handle")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}

	h1.Release()
	h2.Release()
}

func TestRegistry_Resolve_CanonicalizesPath(t *testing.T) {
	root := testutil.SetupTestSdk(t)
	reg := NewRegistry(nil, nil)

	h1, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	defer h1.Release()

	h2, err := reg.Resolve(filepath.Join(root, ".", "platforms", ".."))
	if err != nil {
		t.Fatalf("Resolve() with dotted path error = %v", err)
	}
	defer h2.Release()

	if h1 != h2 {
		t.Error("dotted path resolved to a different handle")
	}
}

func TestRegistry_ResolveForce(t *testing.T) {
	root := testutil.SetupTestSdk(t)
	reg := NewRegistry(nil, nil)

	h1, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	h2, err := reg.ResolveForce(root)
	if err != nil {
		t.Fatalf("ResolveForce() error = %v", err)
	}

	if h1 == h2 {
		t.Fatal("forced resolve returned the cached handle")
	}
	if h2.Generation() <= h1.Generation() {
		t.Errorf("forced generation = %d, want > %d", h2.Generation(), h1.Generation())
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}

	// The fresh parse wins subsequent lookups while both are alive.
	h3, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() after force error = %v", err)
	}
	if h3 != h2 {
		t.Error("lookup after force did not return the newest handle")
	}

	h1.Release()
	h2.Release()
	h3.Release()
}

func TestRegistry_Resolve_PrunesReleasedHandles(t *testing.T) {
	root := testutil.SetupTestSdk(t)
	reg := NewRegistry(nil, nil)

	h1, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	h1.Release()

	// The released entry is reclaimed on the next unforced resolve, which
	// then parses the install afresh.
	h2, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() after release error = %v", err)
	}
	defer h2.Release()

	if h1 == h2 {
		t.Error("resolve returned a handle that was already released")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistry_Release_Extra(t *testing.T) {
	root := testutil.SetupTestSdk(t)
	reg := NewRegistry(nil, nil)

	h, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// Unbalanced releases clamp at zero instead of going negative.
	h.Release()
	h.Release()

	h2, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() after extra release error = %v", err)
	}
	defer h2.Release()
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistry_Resolve_NotFound(t *testing.T) {
	reg := NewRegistry(nil, nil)

	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "empty path",
			path: func(t *testing.T) string { return "" },
		},
		{
			name: "missing directory",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "no-sdk-here") },
		},
		{
			name: "no platforms directory",
			path: func(t *testing.T) string { return t.TempDir() },
		},
		{
			name: "platforms directory empty",
			path: func(t *testing.T) string {
				root := t.TempDir()
				testutil.WriteTestFile(t, filepath.Join(root, "platforms", ".keep"), "")
				return root
			},
		},
		{
			name: "only malformed platforms",
			path: func(t *testing.T) string {
				root := t.TempDir()
				testutil.WriteTestFile(t,
					filepath.Join(root, "platforms", "android-x", "source.properties"),
					"AndroidVersion.ApiLevel=banana\n")
				return root
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := reg.Resolve(tt.path(t))
			if !errors.Is(err, errors.ErrSdkNotFound) {
				t.Errorf("error = %v, want ErrSdkNotFound", err)
			}
			if h != nil {
				t.Errorf("handle = %v, want nil", h)
			}
		})
	}

	if reg.Len() != 0 {
		t.Errorf("Len() = %d after failed resolves, want 0", reg.Len())
	}
}

func TestRegistry_Resolve_PublishesEvent(t *testing.T) {
	root := testutil.SetupTestSdk(t)
	bus := event.NewBus()

	var received []event.SdkResolvedEvent
	bus.Subscribe("sdk.resolved", func(e event.Event) {
		if ev, ok := e.(event.SdkResolvedEvent); ok {
			received = append(received, ev)
		}
	})

	reg := NewRegistry(nil, bus)
	h, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	defer h.Release()

	if len(received) != 1 {
		t.Fatalf("got %d events, want 1", len(received))
	}
	if received[0].Canonical != CanonicalPath(root) {
		t.Errorf("event canonical = %q, want %q", received[0].Canonical, CanonicalPath(root))
	}
	if received[0].Targets != 2 {
		t.Errorf("event targets = %d, want 2", received[0].Targets)
	}
	if received[0].Forced {
		t.Error("unforced resolve published forced event")
	}
}

func TestRegistry_DistinctRoots(t *testing.T) {
	rootA := testutil.SetupTestSdk(t)
	rootB := t.TempDir()
	testutil.AddPlatform(t, rootB, 30, "11.0")

	reg := NewRegistry(nil, nil)

	hA, err := reg.Resolve(rootA)
	if err != nil {
		t.Fatalf("Resolve(rootA) error = %v", err)
	}
	defer hA.Release()

	hB, err := reg.Resolve(rootB)
	if err != nil {
		t.Fatalf("Resolve(rootB) error = %v", err)
	}
	defer hB.Release()

	if hA == hB {
		t.Fatal("distinct roots shared a handle")
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
	if !hA.SameLocation(rootA) || hA.SameLocation(rootB) {
		t.Error("SameLocation() misreports handle A")
	}
}
