package sdk

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/droidcore/sdkbridge/internal/errors"
)

// sourcePropertiesName is the metadata file every installed SDK package carries.
const sourcePropertiesName = "source.properties"

// Property keys used by the SDK's package metadata.
const (
	PropPkgRevision     = "Pkg.Revision"
	PropPkgDesc         = "Pkg.Desc"
	PropAPILevel        = "AndroidVersion.ApiLevel"
	PropCodeName        = "AndroidVersion.CodeName"
	PropPlatformVersion = "Platform.Version"
	PropAddonName       = "Addon.NameDisplay"
	PropAddonNameID     = "Addon.NameId"
	PropAddonVendor     = "Addon.VendorDisplay"
	PropAddonVendorID   = "Addon.VendorId"
)

// ParseProperties parses the java properties subset used by the SDK's
// metadata files: key=value or key:value pairs, # and ! comments, backslash
// escapes, and backslash line continuations. A line without a separator
// yields a key with an empty value, matching java.util.Properties.
func ParseProperties(r io.Reader) (map[string]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading properties")
	}

	props := make(map[string]string)
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}

		// A line ending in an unescaped backslash continues on the next line,
		// with the continuation's leading whitespace dropped.
		for hasContinuation(line) && i+1 < len(lines) {
			i++
			line = line[:len(line)-1] + strings.TrimLeft(lines[i], " \t")
		}

		key, value := splitPropertyLine(line)
		if key == "" {
			continue
		}
		props[unescapeProperty(key)] = unescapeProperty(value)
	}
	return props, nil
}

// LoadProperties reads and parses the properties file at path.
func LoadProperties(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseProperties(f)
}

// hasContinuation reports whether line ends in an odd number of
// backslashes, meaning the final backslash escapes the line break.
func hasContinuation(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// splitPropertyLine splits a logical line at the first unescaped '=' or ':'.
// If no separator exists the whole line is the key.
func splitPropertyLine(line string) (key, value string) {
	escaped := false
	for i := 0; i < len(line); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch line[i] {
		case '\\':
			escaped = true
		case '=', ':':
			return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
		}
	}
	return strings.TrimSpace(line), ""
}

// unescapeProperty resolves backslash escapes. Unknown escapes drop the
// backslash, matching java.util.Properties.
func unescapeProperty(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	escaped := false
	for _, r := range s {
		if !escaped {
			if r == '\\' {
				escaped = true
				continue
			}
			sb.WriteRune(r)
			continue
		}
		escaped = false
		switch r {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
