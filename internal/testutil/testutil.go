// Package testutil provides testing utilities for sdkbridge tests.
package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// SetupTestSdk creates a synthetic Android SDK installation on disk and
// returns its root. The install carries two platforms (API 33 and 34), two
// build-tools revisions, and platform-tools with a fake adb binary. The
// tree is automatically cleaned up when the test completes.
func SetupTestSdk(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	AddPlatform(t, root, 33, "13.0")
	AddPlatform(t, root, 34, "14.0")
	AddBuildTool(t, root, "34.0.0")
	AddBuildTool(t, root, "35.0.0")
	AddPlatformTools(t, root, "35.0.2")
	return root
}

// AddPlatform installs platforms/android-<level> with a source.properties
// describing a released platform. Returns the platform directory.
func AddPlatform(t *testing.T, root string, level int, versionName string) string {
	t.Helper()

	dir := filepath.Join(root, "platforms", fmt.Sprintf("android-%d", level))
	props := fmt.Sprintf(
		"Pkg.Desc=Android SDK Platform %d\nPkg.Revision=2\nAndroidVersion.ApiLevel=%d\nPlatform.Version=%s\n",
		level, level, versionName)
	WriteTestFile(t, filepath.Join(dir, "source.properties"), props)
	return dir
}

// AddPreviewPlatform installs a preview platform carrying a code name in
// addition to its feature level.
func AddPreviewPlatform(t *testing.T, root string, level int, codeName string) string {
	t.Helper()

	dir := filepath.Join(root, "platforms", "android-"+codeName)
	props := fmt.Sprintf(
		"Pkg.Desc=Android SDK Platform %s\nPkg.Revision=1\nAndroidVersion.ApiLevel=%d\nAndroidVersion.CodeName=%s\n",
		codeName, level, codeName)
	WriteTestFile(t, filepath.Join(dir, "source.properties"), props)
	return dir
}

// AddAddOn installs an add-on target described by source.properties.
// Returns the add-on directory.
func AddAddOn(t *testing.T, root, vendor, name string, api int) string {
	t.Helper()

	dir := filepath.Join(root, "add-ons", fmt.Sprintf("addon-%s-%s-%d", ident(name), ident(vendor), api))
	props := fmt.Sprintf(
		"Pkg.Desc=%s\nPkg.Revision=1\nAddon.NameDisplay=%s\nAddon.NameId=%s\nAddon.VendorDisplay=%s\nAddon.VendorId=%s\nAndroidVersion.ApiLevel=%d\n",
		name, name, ident(name), vendor, ident(vendor), api)
	WriteTestFile(t, filepath.Join(dir, "source.properties"), props)
	return dir
}

// AddLegacyAddOn installs an add-on in the old manifest.ini format.
func AddLegacyAddOn(t *testing.T, root, vendor, name string, api int) string {
	t.Helper()

	dir := filepath.Join(root, "add-ons", fmt.Sprintf("addon-%s-%d", ident(name), api))
	manifest := fmt.Sprintf("name=%s\nvendor=%s\napi=%d\nrevision=2\n", name, vendor, api)
	WriteTestFile(t, filepath.Join(dir, "manifest.ini"), manifest)
	return dir
}

// AddBuildTool installs build-tools/<rev>. Returns the package directory.
func AddBuildTool(t *testing.T, root, rev string) string {
	t.Helper()

	dir := filepath.Join(root, "build-tools", rev)
	props := "Pkg.Desc=Android SDK Build-Tools\nPkg.Revision=" + rev + "\n"
	WriteTestFile(t, filepath.Join(dir, "source.properties"), props)
	return dir
}

// AddPlatformTools installs platform-tools with the given revision and a
// fake adb that exits successfully. Returns the package directory.
func AddPlatformTools(t *testing.T, root, rev string) string {
	t.Helper()

	dir := filepath.Join(root, "platform-tools")
	props := "Pkg.Desc=Android SDK Platform-Tools\nPkg.Revision=" + rev + "\n"
	WriteTestFile(t, filepath.Join(dir, "source.properties"), props)
	WriteFakeAdb(t, dir, "#!/bin/sh\nexit 0\n")
	return dir
}

// AddTargetData populates a target directory with the files TargetData
// derives from: an android.jar stub, a build.prop, and skin directories.
func AddTargetData(t *testing.T, targetDir string, buildProps map[string]string, skins ...string) {
	t.Helper()

	WriteTestFile(t, filepath.Join(targetDir, "android.jar"), "stub")

	var sb strings.Builder
	for k, v := range buildProps {
		fmt.Fprintf(&sb, "%s=%s\n", k, v)
	}
	WriteTestFile(t, filepath.Join(targetDir, "build.prop"), sb.String())

	for _, skin := range skins {
		if err := os.MkdirAll(filepath.Join(targetDir, "skins", skin), 0755); err != nil {
			t.Fatalf("failed to create skin %s: %v", skin, err)
		}
	}
}

// WriteFakeAdb writes an executable adb stand-in script into dir and
// returns its path. The script body decides the fake's behavior.
func WriteFakeAdb(t *testing.T, dir, script string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create dir %s: %v", dir, err)
	}
	path := filepath.Join(dir, "adb")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake adb: %v", err)
	}
	return path
}

// WriteTestFile writes content to path, creating parent directories.
func WriteTestFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// SkipIfNoShell skips the test if no POSIX shell is available to run the
// fake adb scripts.
func SkipIfNoShell(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH, skipping test")
	}
}

// ident converts a display string into the identifier form used in
// package directory names, e.g. "Google APIs" -> "google_apis".
func ident(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}
