package sdk

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/droidcore/sdkbridge/internal/errors"
)

// Revision is the version of an installed SDK package, as carried in the
// Pkg.Revision property and in build-tools directory names. Preview
// revisions carry an rc number and order before the release they precede,
// so "35.0.0 rc1" < "35.0.0".
type Revision struct {
	Major   int
	Minor   int
	Micro   int
	Preview int // rc number, 0 for releases
}

// revisionRegex accepts "35", "35.0", "35.0.0", "35.0.0 rc1", "35.0.0-rc1"
var revisionRegex = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:[ -]rc(\d+))?$`)

// ParseRevision parses a package revision string.
func ParseRevision(s string) (Revision, error) {
	m := revisionRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Revision{}, errors.NewValidationError(fmt.Sprintf("invalid revision %q", s))
	}

	atoi := func(s string) int {
		if s == "" {
			return 0
		}
		n, _ := strconv.Atoi(s)
		return n
	}
	return Revision{
		Major:   atoi(m[1]),
		Minor:   atoi(m[2]),
		Micro:   atoi(m[3]),
		Preview: atoi(m[4]),
	}, nil
}

// String renders the revision in the full "major.minor.micro[ rcN]" form.
func (r Revision) String() string {
	s := fmt.Sprintf("%d.%d.%d", r.Major, r.Minor, r.Micro)
	if r.Preview > 0 {
		s += fmt.Sprintf(" rc%d", r.Preview)
	}
	return s
}

// IsPreview reports whether the revision is a release candidate.
func (r Revision) IsPreview() bool {
	return r.Preview > 0
}

// Compare returns -1, 0, or 1 ordering r against other. A preview sorts
// before the release with the same number.
func (r Revision) Compare(other Revision) int {
	if c := compareInt(r.Major, other.Major); c != 0 {
		return c
	}
	if c := compareInt(r.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareInt(r.Micro, other.Micro); c != 0 {
		return c
	}
	switch {
	case r.Preview == other.Preview:
		return 0
	case r.Preview == 0:
		return 1
	case other.Preview == 0:
		return -1
	default:
		return compareInt(r.Preview, other.Preview)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
