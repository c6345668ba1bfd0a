package sdk

import (
	"strconv"
)

// platformHashPrefix builds the hash string of platform targets.
const platformHashPrefix = "android-"

// Target describes an installed platform or add-on.
//
// Target names are display strings and are not guaranteed unique across an
// installation; hash strings are. Use HashString when a stable identifier
// is needed.
type Target interface {
	// Name returns the display name, e.g. "Android 14.0" or "Google APIs".
	Name() string
	// Version returns the Android version the target is built against.
	Version() APILevel
	// Revision returns the installed package revision.
	Revision() Revision
	// HashString returns the unique install identifier: "android-<api>" for
	// platforms, "<vendor>:<name>:<api>" for add-ons.
	HashString() string
	// Location returns the absolute install directory.
	Location() string
	// IsPlatform reports whether the target is a platform rather than an add-on.
	IsPlatform() bool
}

// Platform is a standard Android platform target installed under platforms/.
type Platform struct {
	path        string
	version     APILevel
	versionName string // Platform.Version property, e.g. "14.0"
	revision    Revision
}

func (p *Platform) Name() string {
	if p.version.IsPreview() {
		return "Android " + p.version.CodeName + " (Preview)"
	}
	if p.versionName != "" {
		return "Android " + p.versionName
	}
	return "Android API " + strconv.Itoa(p.version.Level)
}

func (p *Platform) Version() APILevel { return p.version }

func (p *Platform) Revision() Revision { return p.revision }

func (p *Platform) Location() string { return p.path }

func (p *Platform) IsPlatform() bool { return true }

func (p *Platform) HashString() string { return platformHashPrefix + p.version.String() }

// AddOn is a vendor-provided target installed under add-ons/, layered on
// top of a platform version.
type AddOn struct {
	path     string
	name     string
	vendor   string
	version  APILevel
	revision Revision
}

func (a *AddOn) Name() string { return a.name }

// Vendor returns the add-on provider's display name.
func (a *AddOn) Vendor() string { return a.vendor }

func (a *AddOn) Version() APILevel { return a.version }

func (a *AddOn) Revision() Revision { return a.revision }

func (a *AddOn) Location() string { return a.path }

func (a *AddOn) IsPlatform() bool { return false }

func (a *AddOn) HashString() string {
	return a.vendor + ":" + a.name + ":" + a.version.String()
}

// BuildTool is an installed build-tools package.
type BuildTool struct {
	Path     string
	Revision Revision
}

// PlatformHash returns the hash string a platform with the given version
// would carry, without requiring the platform to be installed.
func PlatformHash(version APILevel) string {
	return platformHashPrefix + version.String()
}

// AddOnHash returns the hash string an add-on with the given identity
// would carry.
func AddOnHash(vendor, name string, version APILevel) string {
	return vendor + ":" + name + ":" + version.String()
}
