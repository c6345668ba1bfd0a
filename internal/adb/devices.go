package adb

import (
	"strings"
)

// Device states as reported by the adb server.
const (
	StateDevice       = "device"
	StateOffline      = "offline"
	StateUnauthorized = "unauthorized"
	StateBootloader   = "bootloader"
	StateRecovery     = "recovery"
	StateNoPerms      = "no permissions"
)

// Device is one row of the server's device list.
type Device struct {
	Serial      string
	State       string
	Product     string // product:<value> from the long listing
	Model       string // model:<value> from the long listing
	Name        string // device:<value> from the long listing
	TransportID string
}

// IsOnline reports whether the device is ready for commands.
func (d Device) IsOnline() bool {
	return d.State == StateDevice
}

// ParseDevices parses the output of "adb devices -l". Lines that are not
// device rows, such as the banner and daemon start notices, are ignored.
func ParseDevices(output string) []Device {
	var devices []Device
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" ||
			strings.HasPrefix(line, "List of devices") ||
			strings.HasPrefix(line, "*") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		d := Device{Serial: fields[0], State: fields[1]}
		rest := fields[2:]
		// "no permissions" spans two fields, optionally followed by a hint.
		if d.State == "no" && len(rest) > 0 && strings.HasPrefix(rest[0], "permissions") {
			d.State = StateNoPerms
			rest = rest[1:]
			for len(rest) > 0 && !strings.Contains(rest[0], ":") {
				rest = rest[1:]
			}
		}

		for _, field := range rest {
			key, value, ok := strings.Cut(field, ":")
			if !ok {
				continue
			}
			switch key {
			case "product":
				d.Product = value
			case "model":
				d.Model = value
			case "device":
				d.Name = value
			case "transport_id":
				d.TransportID = value
			}
		}
		devices = append(devices, d)
	}
	return devices
}

// Serials extracts the serial numbers from a device list, preserving order.
func Serials(devices []Device) []string {
	serials := make([]string, len(devices))
	for i, d := range devices {
		serials[i] = d.Serial
	}
	return serials
}
