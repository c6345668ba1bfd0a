package sdk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/iter"

	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/logging"
)

// Top-level package directories of an SDK install.
const (
	platformsDirName     = "platforms"
	addonsDirName        = "add-ons"
	buildToolsDirName    = "build-tools"
	platformToolsDirName = "platform-tools"
	toolsDirName         = "tools"
)

// inventory is the immutable parsed content of one SDK root.
type inventory struct {
	targets    []Target    // platforms ordered by version, then add-ons ordered by name
	buildTools []BuildTool // ascending by revision

	platformToolsRev *Revision
	toolsRev         *Revision
}

// scanRoot parses every installed target and build tool under root.
// The package sections are independent, so they load concurrently.
// Entries that fail to parse are skipped with a debug log.
func scanRoot(root string, log *logging.Logger) *inventory {
	inv := &inventory{}

	var platforms, addons []Target

	var wg conc.WaitGroup
	wg.Go(func() { platforms = scanPlatforms(root, log) })
	wg.Go(func() { addons = scanAddOns(root, log) })
	wg.Go(func() { inv.buildTools = scanBuildTools(root, log) })
	wg.Go(func() { inv.platformToolsRev = packageRevision(root, platformToolsDirName) })
	wg.Go(func() { inv.toolsRev = packageRevision(root, toolsDirName) })
	wg.Wait()

	// Deterministic enumeration order: platforms by version then hash,
	// add-ons by name then hash. "First match" lookups depend on this.
	sort.SliceStable(platforms, func(i, j int) bool {
		if c := platforms[i].Version().Compare(platforms[j].Version()); c != 0 {
			return c < 0
		}
		return platforms[i].HashString() < platforms[j].HashString()
	})
	sort.SliceStable(addons, func(i, j int) bool {
		if addons[i].Name() != addons[j].Name() {
			return addons[i].Name() < addons[j].Name()
		}
		return addons[i].HashString() < addons[j].HashString()
	})

	inv.targets = make([]Target, 0, len(platforms)+len(addons))
	inv.targets = append(inv.targets, platforms...)
	inv.targets = append(inv.targets, addons...)
	return inv
}

func scanPlatforms(root string, log *logging.Logger) []Target {
	dir := filepath.Join(root, platformsDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debug("no platforms directory", "path", dir, "error", err)
		return nil
	}

	parsed := iter.Map(entries, func(e *os.DirEntry) Target {
		entry := *e
		if !entry.IsDir() {
			return nil
		}
		p, err := parsePlatform(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Debug("skipping platform", "dir", entry.Name(), "error", err)
			return nil
		}
		return p
	})
	return dropNil(parsed)
}

func scanAddOns(root string, log *logging.Logger) []Target {
	dir := filepath.Join(root, addonsDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debug("no add-ons directory", "path", dir, "error", err)
		return nil
	}

	parsed := iter.Map(entries, func(e *os.DirEntry) Target {
		entry := *e
		if !entry.IsDir() {
			return nil
		}
		a, err := parseAddOn(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Debug("skipping add-on", "dir", entry.Name(), "error", err)
			return nil
		}
		return a
	})
	return dropNil(parsed)
}

func scanBuildTools(root string, log *logging.Logger) []BuildTool {
	dir := filepath.Join(root, buildToolsDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debug("no build-tools directory", "path", dir, "error", err)
		return nil
	}

	var tools []BuildTool
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		rev, err := buildToolRevision(path, entry.Name())
		if err != nil {
			log.Debug("skipping build-tools entry", "dir", entry.Name(), "error", err)
			continue
		}
		tools = append(tools, BuildTool{Path: path, Revision: rev})
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Revision.Compare(tools[j].Revision) < 0
	})
	return tools
}

// parsePlatform loads a platforms/<dir> entry from its source.properties.
func parsePlatform(dir string) (*Platform, error) {
	props, err := LoadProperties(filepath.Join(dir, sourcePropertiesName))
	if err != nil {
		return nil, err
	}

	apiStr, ok := props[PropAPILevel]
	if !ok {
		return nil, errors.NewValidationError("missing " + PropAPILevel)
	}
	level, err := strconv.Atoi(strings.TrimSpace(apiStr))
	if err != nil || level < 1 {
		return nil, errors.NewValidationError(fmt.Sprintf("bad api level %q", apiStr))
	}

	version := APILevel{Level: level, CodeName: strings.TrimSpace(props[PropCodeName])}
	// "REL" marks a released platform, not a preview code name
	if strings.EqualFold(version.CodeName, "REL") {
		version.CodeName = ""
	}

	return &Platform{
		path:        dir,
		version:     version,
		versionName: strings.TrimSpace(props[PropPlatformVersion]),
		revision:    propRevision(props),
	}, nil
}

// parseAddOn loads an add-ons/<dir> entry. Current packages describe
// themselves in source.properties; legacy ones in manifest.ini.
func parseAddOn(dir string) (*AddOn, error) {
	props, err := LoadProperties(filepath.Join(dir, sourcePropertiesName))
	if err == nil {
		return addOnFromProps(dir, props,
			firstNonEmpty(props[PropAddonName], props[PropAddonNameID]),
			firstNonEmpty(props[PropAddonVendor], props[PropAddonVendorID]),
			props[PropAPILevel])
	}

	manifest, merr := LoadProperties(filepath.Join(dir, "manifest.ini"))
	if merr != nil {
		return nil, err
	}
	// manifest.ini spells the revision key differently
	if rev, ok := manifest["revision"]; ok {
		manifest[PropPkgRevision] = rev
	}
	return addOnFromProps(dir, manifest, manifest["name"], manifest["vendor"], manifest["api"])
}

func addOnFromProps(dir string, props map[string]string, name, vendor, apiStr string) (*AddOn, error) {
	if name == "" || vendor == "" {
		return nil, errors.NewValidationError("add-on missing name or vendor")
	}
	level, err := strconv.Atoi(strings.TrimSpace(apiStr))
	if err != nil || level < 1 {
		return nil, errors.NewValidationError(fmt.Sprintf("bad add-on api level %q", apiStr))
	}

	return &AddOn{
		path:     dir,
		name:     name,
		vendor:   vendor,
		version:  APILevel{Level: level},
		revision: propRevision(props),
	}, nil
}

// buildToolRevision prefers Pkg.Revision over the directory name, which is
// only a convention.
func buildToolRevision(dir, dirName string) (Revision, error) {
	if props, err := LoadProperties(filepath.Join(dir, sourcePropertiesName)); err == nil {
		if raw, ok := props[PropPkgRevision]; ok {
			if rev, err := ParseRevision(raw); err == nil {
				return rev, nil
			}
		}
	}
	return ParseRevision(dirName)
}

// packageRevision reads the Pkg.Revision of a top-level package such as
// platform-tools. Returns nil when the package is not installed.
func packageRevision(root, pkgDir string) *Revision {
	props, err := LoadProperties(filepath.Join(root, pkgDir, sourcePropertiesName))
	if err != nil {
		return nil
	}
	rev, err := ParseRevision(props[PropPkgRevision])
	if err != nil {
		return nil
	}
	return &rev
}

// propRevision reads Pkg.Revision, defaulting to revision 1 like the SDK
// tooling does for packages that omit it.
func propRevision(props map[string]string) Revision {
	if raw, ok := props[PropPkgRevision]; ok {
		if rev, err := ParseRevision(raw); err == nil {
			return rev
		}
	}
	return Revision{Major: 1}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func dropNil(targets []Target) []Target {
	var out []Target
	for _, t := range targets {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
