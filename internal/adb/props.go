package adb

import (
	"context"
	"strings"

	"github.com/droidcore/sdkbridge/internal/errors"
)

// Props reads every system property a device reports, keyed by property
// name.
func (c *Client) Props(ctx context.Context, serial string) (map[string]string, error) {
	if serial == "" {
		return nil, errors.NewValidationError("device serial required")
	}
	output, err := c.run(ctx, nil, SerialArgs(serial, "shell", "getprop")...)
	if err != nil {
		return nil, errors.NewDeviceError("getprop failed", err).WithSerial(serial)
	}
	return ParseProps(output), nil
}

// ParseProps parses bare getprop output, one "[key]: [value]" pair per
// line. A value that spans lines keeps only its first line.
func ParseProps(output string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[") {
			continue
		}
		key, rest, ok := strings.Cut(line[1:], "]: [")
		if !ok || key == "" {
			continue
		}
		props[key] = strings.TrimSuffix(rest, "]")
	}
	return props
}
