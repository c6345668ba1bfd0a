package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/droidcore/sdkbridge/internal/adb"
	"github.com/droidcore/sdkbridge/internal/errors"
)

var shellCmd = &cobra.Command{
	Use:   "shell [serial] [-- command...]",
	Short: "Open a shell on a device",
	Long: `Open an interactive shell on a device, or run a single command when one
is given after --. The serial may be omitted when exactly one device is
online.`,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	serial, command, err := splitShellArgs(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Close() }()

	client, err := adbClient(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	manager, coord := newBridge(cfg, client, log, false)
	if err := coord.Connect(ctx); err != nil {
		return err
	}
	conn := manager.Handle()
	if conn == nil {
		return errors.NewBridgeError("adb server did not answer", errors.ErrBridgeFailed).
			WithAdbPath(client.Path())
	}

	if serial == "" {
		serial, err = soleOnlineSerial(ctx, conn)
	} else {
		err = checkDeviceReady(ctx, conn, serial)
	}
	if err != nil {
		return err
	}
	return conn.Shell(ctx, serial, command...)
}

// checkDeviceReady verifies that the named device is attached and in a
// state that accepts shell commands. Bootloader and recovery states pass
// through unchecked since adbd answers shells in recovery.
func checkDeviceReady(ctx context.Context, conn *adb.Client, serial string) error {
	devices, err := conn.Devices(ctx)
	if err != nil {
		return err
	}
	for _, d := range devices {
		if d.Serial != serial {
			continue
		}
		switch d.State {
		case adb.StateOffline:
			return errors.NewDeviceError("cannot open shell", errors.ErrDeviceOffline).
				WithSerial(serial).WithState(d.State)
		case adb.StateUnauthorized:
			return errors.NewDeviceError("accept the authorization prompt on the device", errors.ErrDeviceUnauthorized).
				WithSerial(serial).WithState(d.State)
		}
		return nil
	}
	return errors.NewDeviceError("no such device attached", errors.ErrDeviceNotFound).
		WithSerial(serial)
}

// splitShellArgs separates the optional serial from the command after --.
func splitShellArgs(cmd *cobra.Command, args []string) (serial string, command []string, err error) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		dash = len(args)
	}
	if dash > 1 {
		return "", nil, errors.NewValidationError("at most one serial may precede --")
	}
	if dash == 1 {
		serial = args[0]
	}
	return serial, args[dash:], nil
}

// soleOnlineSerial picks the only online device, failing when the choice
// is ambiguous.
func soleOnlineSerial(ctx context.Context, conn *adb.Client) (string, error) {
	devices, err := conn.Devices(ctx)
	if err != nil {
		return "", err
	}

	var online []adb.Device
	for _, d := range devices {
		if d.IsOnline() {
			online = append(online, d)
		}
	}
	switch len(online) {
	case 0:
		return "", errors.NewDeviceError("no online device", errors.ErrDeviceNotFound)
	case 1:
		return online[0].Serial, nil
	default:
		return "", errors.NewValidationError(fmt.Sprintf("%d devices online, pass a serial: %s",
			len(online), strings.Join(adb.Serials(online), ", ")))
	}
}
