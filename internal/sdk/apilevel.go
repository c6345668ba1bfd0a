package sdk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/droidcore/sdkbridge/internal/errors"
)

// APILevel identifies the Android version a target is built against: a
// stable numeric API level, or a preview code name paired with the level
// it will ship as.
type APILevel struct {
	Level    int
	CodeName string // set only for previews
}

// ParseAPILevel interprets s as a numeric API level or a preview code name.
func ParseAPILevel(s string) (APILevel, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return APILevel{}, errors.NewValidationError("empty api level")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return APILevel{}, errors.NewValidationError(fmt.Sprintf("api level %d out of range", n))
		}
		return APILevel{Level: n}, nil
	}
	return APILevel{CodeName: s}, nil
}

// IsPreview reports whether the version is a preview release.
func (a APILevel) IsPreview() bool {
	return a.CodeName != ""
}

// String returns the api string used in target hashes: the code name for
// previews, the numeric level otherwise.
func (a APILevel) String() string {
	if a.CodeName != "" {
		return a.CodeName
	}
	return strconv.Itoa(a.Level)
}

// Compare orders versions by feature level. A preview sorts after the
// release that shares its level, since it previews what comes next.
func (a APILevel) Compare(other APILevel) int {
	if c := compareInt(a.Level, other.Level); c != 0 {
		return c
	}
	switch {
	case a.IsPreview() == other.IsPreview():
		return 0
	case a.IsPreview():
		return 1
	default:
		return -1
	}
}

// versionNames maps API levels to the Android release versions they shipped as.
var versionNames = map[int]string{
	16: "4.1",
	17: "4.2",
	18: "4.3",
	19: "4.4",
	20: "4.4W",
	21: "5.0",
	22: "5.1",
	23: "6.0",
	24: "7.0",
	25: "7.1",
	26: "8.0",
	27: "8.1",
	28: "9.0",
	29: "10.0",
	30: "11.0",
	31: "12.0",
	32: "12L",
	33: "13.0",
	34: "14.0",
	35: "15.0",
	36: "16.0",
}

// codeNames maps API levels to their development code names.
var codeNames = map[int]string{
	16: "Jelly Bean",
	17: "Jelly Bean MR1",
	18: "Jelly Bean MR2",
	19: "KitKat",
	20: "KitKat Wear",
	21: "Lollipop",
	22: "Lollipop MR1",
	23: "Marshmallow",
	24: "Nougat",
	25: "Nougat MR1",
	26: "Oreo",
	27: "Oreo MR1",
	28: "Pie",
	29: "Q",
	30: "R",
	31: "S",
	32: "Sv2",
	33: "Tiramisu",
	34: "UpsideDownCake",
	35: "VanillaIceCream",
	36: "Baklava",
}

// AndroidName returns a human readable description of an API level, e.g.
// "API 34: Android 14.0 (UpsideDownCake)". Unknown levels fall back to
// "API <level>".
func AndroidName(level int) string {
	version, ok := versionNames[level]
	if !ok {
		return fmt.Sprintf("API %d", level)
	}
	return fmt.Sprintf("API %d: Android %s (%s)", level, version, codeNames[level])
}
