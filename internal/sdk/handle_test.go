package sdk

import (
	"testing"

	"github.com/droidcore/sdkbridge/internal/testutil"
)

// resolveTestSdk builds an install with platforms, add-ons, and tooling
// packages and resolves it through a fresh registry.
func resolveTestSdk(t *testing.T) *Handle {
	t.Helper()

	root := testutil.SetupTestSdk(t)
	testutil.AddAddOn(t, root, "Google Inc.", "Google APIs", 24)
	testutil.AddAddOn(t, root, "Google Inc.", "Google APIs", 33)

	h, err := NewRegistry(nil, nil).Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	t.Cleanup(h.Release)
	return h
}

func TestHandle_Targets_Isolated(t *testing.T) {
	h := resolveTestSdk(t)

	targets := h.Targets()
	if len(targets) != 4 {
		t.Fatalf("got %d targets, want 4", len(targets))
	}
	targets[0] = nil
	if h.Targets()[0] == nil {
		t.Error("mutating the returned slice changed the handle")
	}
}

func TestHandle_FindTargetByName(t *testing.T) {
	h := resolveTestSdk(t)

	tgt, ok := h.FindTargetByName("Android 14.0")
	if !ok {
		t.Fatal("platform not found by name")
	}
	if tgt.HashString() != "android-34" {
		t.Errorf("HashString() = %s, want android-34", tgt.HashString())
	}

	// Two add-ons share the display name; the lower api level sorts first
	// and wins.
	tgt, ok = h.FindTargetByName("Google APIs")
	if !ok {
		t.Fatal("add-on not found by name")
	}
	if tgt.HashString() != "Google Inc.:Google APIs:24" {
		t.Errorf("HashString() = %s, want the api 24 add-on", tgt.HashString())
	}

	if _, ok := h.FindTargetByName("No Such Target"); ok {
		t.Error("unknown name reported as found")
	}
}

func TestHandle_FindTargetByAPILevel(t *testing.T) {
	h := resolveTestSdk(t)

	tests := []struct {
		name     string
		api      string
		wantHash string
		wantOk   bool
	}{
		{name: "platform", api: "34", wantHash: "android-34", wantOk: true},
		{name: "whitespace tolerated", api: " 34 ", wantHash: "android-34", wantOk: true},
		{
			// API 33 has both a platform and an add-on installed.
			name:     "platform preferred over add-on",
			api:      "33",
			wantHash: "android-33",
			wantOk:   true,
		},
		{
			name:     "add-on fallback",
			api:      "24",
			wantHash: "Google Inc.:Google APIs:24",
			wantOk:   true,
		},
		{name: "not installed", api: "21", wantOk: false},
		{name: "not a level", api: "banana", wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tgt, ok := h.FindTargetByAPILevel(tt.api)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && tgt.HashString() != tt.wantHash {
				t.Errorf("HashString() = %s, want %s", tgt.HashString(), tt.wantHash)
			}
		})
	}
}

func TestHandle_FindTargetByHash(t *testing.T) {
	h := resolveTestSdk(t)

	tgt, ok := h.FindTargetByHash("Google Inc.:Google APIs:33")
	if !ok {
		t.Fatal("add-on not found by hash")
	}
	if tgt.IsPlatform() {
		t.Error("add-on hash resolved to a platform")
	}

	if _, ok := h.FindTargetByHash("android-99"); ok {
		t.Error("unknown hash reported as found")
	}
}

func TestHandle_LatestBuildTool(t *testing.T) {
	h := resolveTestSdk(t)

	bt, ok := h.LatestBuildTool()
	if !ok {
		t.Fatal("no build tool reported")
	}
	if got := bt.Revision.String(); got != "35.0.0" {
		t.Errorf("latest = %s, want 35.0.0", got)
	}
}

func TestHandle_LatestBuildTool_NoneInstalled(t *testing.T) {
	root := t.TempDir()
	testutil.AddPlatform(t, root, 34, "14.0")

	h, err := NewRegistry(nil, nil).Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	defer h.Release()

	if _, ok := h.LatestBuildTool(); ok {
		t.Error("build tool reported on install without build-tools")
	}
}

func TestHandle_PackageRevisions(t *testing.T) {
	h := resolveTestSdk(t)

	rev, ok := h.PlatformToolsRevision()
	if !ok {
		t.Fatal("platform-tools revision not reported")
	}
	if got := rev.String(); got != "35.0.2" {
		t.Errorf("platform-tools = %s, want 35.0.2", got)
	}

	if _, ok := h.ToolsRevision(); ok {
		t.Error("tools revision reported on install without tools")
	}
}

func TestHandle_RemainsUsableAfterForce(t *testing.T) {
	root := testutil.SetupTestSdk(t)
	reg := NewRegistry(nil, nil)

	h1, err := reg.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	defer h1.Release()

	// Install another platform, then force a reparse.
	testutil.AddPlatform(t, root, 35, "15.0")
	h2, err := reg.ResolveForce(root)
	if err != nil {
		t.Fatalf("ResolveForce() error = %v", err)
	}
	defer h2.Release()

	// The old handle keeps its view; the new one sees the addition.
	if got := len(h1.Targets()); got != 2 {
		t.Errorf("old handle has %d targets, want 2", got)
	}
	if got := len(h2.Targets()); got != 3 {
		t.Errorf("new handle has %d targets, want 3", got)
	}
}
