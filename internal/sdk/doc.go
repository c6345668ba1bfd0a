// Package sdk locates, parses, and caches Android SDK installations.
//
// The package is organized around three pieces:
//
//   - Registry hands out reference-counted Handles to parsed SDK roots.
//     Resolving the same root twice returns the same Handle; releasing the
//     last reference makes the entry eligible for pruning on the next
//     unforced resolve. ResolveForce always reparses, so callers that
//     suspect the install changed on disk can get a fresh view while older
//     handles stay valid until released.
//
//   - Handle exposes the parsed install: the list of platform and add-on
//     targets, installed build-tools, and the platform-tools and tools
//     package revisions. Lookup helpers find targets by display name, api
//     level string, or hash string.
//
//   - TargetData carries per-target derived data (the android.jar path,
//     bundled skins, build.prop contents). It is loaded lazily, cached
//     unboundedly on the Handle, and transparently rebuilt after
//     invalidation. A Watcher can drive invalidation from filesystem
//     events when the install is modified externally.
//
// Usage:
//
//	reg := sdk.NewRegistry(logger, bus)
//	handle, err := reg.Resolve("/opt/android-sdk")
//	if err != nil {
//		// errors.Is(err, errors.ErrSdkNotFound) for missing or invalid roots
//	}
//	defer handle.Release()
//
//	for _, t := range handle.Targets() {
//		fmt.Println(t.HashString(), t.Name())
//	}
//
// All Registry and Handle methods are safe for concurrent use.
package sdk
